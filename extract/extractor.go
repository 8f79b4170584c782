package extract

import "context"

// PageText is the plain text of one document page.
type PageText struct {
	Page int
	Text string
}

// PageImage is one embedded image pulled out of a document page.
type PageImage struct {
	Page     int
	MimeType string
	Data     []byte
}

// Document is the raw material a catalog pipeline works from.
type Document struct {
	PageCount int
	Pages     []PageText
	Images    []PageImage
}

// DocumentExtractor turns raw document bytes into text and images.
// Implementations must be safe for concurrent use.
type DocumentExtractor interface {
	// Probe cheaply inspects the document and returns its page count.
	// Returns ErrInvalidDocument if the bytes are not a readable document.
	Probe(ctx context.Context, data []byte) (int, error)

	// Extract parses the full document.
	// Pages with no extractable text are returned with empty Text so page
	// numbering stays aligned with the source document.
	Extract(ctx context.Context, data []byte) (*Document, error)
}
