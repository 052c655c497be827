package models

// ExtractionStrategy selects the metadata extraction approach for a document.
type ExtractionStrategy string

const (
	StrategyFast     ExtractionStrategy = "fast"
	StrategyTemplate ExtractionStrategy = "template"
	StrategyDeep     ExtractionStrategy = "deep"
)

// Classification is the result of the initial document triage step.
type Classification struct {
	DocumentType         string  `json:"document_type"`
	Complexity           string  `json:"complexity"`
	Confidence           float64 `json:"confidence"`
	Reasoning            string  `json:"reasoning,omitempty"`
	RequiresDeepAnalysis bool    `json:"requires_deep_analysis"`
}

// Strategy maps the complexity level to an extraction strategy:
// simple -> fast, structured -> template, complex -> deep.
func (c *Classification) Strategy() ExtractionStrategy {
	switch c.Complexity {
	case "simple":
		return StrategyFast
	case "complex":
		return StrategyDeep
	default:
		return StrategyTemplate
	}
}

// NeedsChunkMetadata reports whether per-chunk metadata extraction should
// run for this document. True when deep analysis is required or the
// document is classified as complex.
func (c *Classification) NeedsChunkMetadata() bool {
	return c.RequiresDeepAnalysis || c.Complexity == "complex"
}
