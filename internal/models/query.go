package models

// QueryAnalysis is the structured interpretation of a user query produced
// by the query understanding step. When understanding fails the retriever
// substitutes a safe default with the original query and no filters.
type QueryAnalysis struct {
	Intent            string              `json:"intent"`
	ReformulatedQuery string              `json:"reformulated_query"`
	RequiredFilters   map[string][]string `json:"required_filters,omitempty"`
	Confidence        float64             `json:"confidence"`
}

// RetrievedChunk is a single search hit. Distance is the raw cosine
// distance from the vector store; Score is the min-max normalized
// relevance in [0,1] where higher is better.
type RetrievedChunk struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"document_id"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Distance   float64           `json:"distance"`
	Score      float64           `json:"score"`
}

// QueryResult is the full retrieval outcome for a query.
type QueryResult struct {
	Query    string           `json:"query"`
	Analysis *QueryAnalysis   `json:"analysis,omitempty"`
	Chunks   []RetrievedChunk `json:"chunks"`
}

// Source attributes part of a generated answer to a stored document.
type Source struct {
	DocumentID     string  `json:"document_id"`
	DocumentType   string  `json:"document_type,omitempty"`
	Department     string  `json:"department,omitempty"`
	AuthorityLevel string  `json:"authority_level,omitempty"`
	EffectiveDate  string  `json:"effective_date,omitempty"`
	Version        string  `json:"version,omitempty"`
	Score          float64 `json:"score"`
}

// Answer is a generated response grounded in retrieved chunks.
type Answer struct {
	Query      string   `json:"query"`
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Sources    []Source `json:"sources"`
	ChunksUsed int      `json:"chunks_used"`
}
