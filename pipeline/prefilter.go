package pipeline

import (
	"regexp"
	"strings"
)

// The prefilter removes chunks that are recognizably not product content
// before they reach the cheap classification model. Catalogs front-load
// tables of contents and close with certification and sustainability
// boilerplate; skipping them cuts a meaningful share of stage-1 calls.

var (
	// Rows of "title .... page-number" repeated across the chunk.
	tocLinePattern = regexp.MustCompile(`(?m)^.{2,60}\.{3,}\s*\d{1,4}\s*$`)

	// Certification codes and norms with no prose around them.
	certificationPattern = regexp.MustCompile(`(?i)\b(ISO\s?\d{4,5}|EN\s?\d{4,5}|DIN\s?\d{4,5}|ASTM\s?[A-Z]?\d+|LEED|BREEAM|CE\s+mark)`)

	sustainabilityMarkers = []string{
		"carbon footprint",
		"recycled content",
		"environmental product declaration",
		"life cycle assessment",
		"co2 emissions",
		"sustainability report",
	}

	legalMarkers = []string{
		"all rights reserved",
		"terms and conditions",
		"limitation of liability",
		"warranty disclaimer",
	}
)

// shouldClassify reports whether a chunk is worth a model call, and the
// reason when it is not.
func shouldClassify(text string) (bool, string) {
	lower := strings.ToLower(text)

	if isTableOfContents(text) {
		return false, "table_of_contents"
	}
	if countMarkers(lower, sustainabilityMarkers) >= 2 {
		return false, "sustainability_boilerplate"
	}
	if countMarkers(lower, legalMarkers) >= 2 {
		return false, "legal_boilerplate"
	}
	if isCertificationOnly(text) {
		return false, "certification_only"
	}
	return true, ""
}

// isTableOfContents detects chunks dominated by dotted TOC rows.
func isTableOfContents(text string) bool {
	matches := tocLinePattern.FindAllString(text, -1)
	if len(matches) < 3 {
		return false
	}
	lines := strings.Count(text, "\n") + 1
	return len(matches)*2 >= lines
}

// isCertificationOnly detects chunks that are lists of norms and codes
// with almost no surrounding prose.
func isCertificationOnly(text string) bool {
	matches := certificationPattern.FindAllString(text, -1)
	if len(matches) < 3 {
		return false
	}
	stripped := certificationPattern.ReplaceAllString(text, "")
	words := len(strings.Fields(stripped))
	return words < 10*len(matches)
}

func countMarkers(lower string, markers []string) int {
	count := 0
	for _, marker := range markers {
		if strings.Contains(lower, marker) {
			count++
		}
	}
	return count
}
