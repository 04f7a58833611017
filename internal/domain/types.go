package domain

// DocumentUnit represents one whole source file as a single retrievable
// text blob. Units are created fresh on every ingestion pass and are
// never mutated after that.
type DocumentUnit struct {
	// SourceID is the filename of the originating PDF, including extension.
	SourceID string `json:"source_id"`
	// Text is the full extracted content, pages joined in reading order.
	Text string `json:"text"`
	// Preview is a one-line extractive summary shown next to the source
	// when it comes back as a search candidate.
	Preview string `json:"preview,omitempty"`
}

// SearchResult is a matching document with its similarity score.
type SearchResult struct {
	Unit  DocumentUnit
	Score float64
}
