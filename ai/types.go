package ai

// ContentTypes defines the valid content type guesses for chunk verdicts.
// These categories are used by chunk classifiers to label catalog content.
var ContentTypes = []string{
	"product",
	"product_table",
	"index",
	"marketing",
	"certification",
	"sustainability",
	"technical_characteristics",
	"installation_guide",
	"legal",
	"other",
}

// QualityLevels defines the valid quality self-assessments for enrichment.
var QualityLevels = []string{"high", "medium", "low"}
