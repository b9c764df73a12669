package memory

import (
	"time"
)

// Document is a stored memory entry with its embedding. Embedding is nil on
// list reads where the vector is not needed.
type Document struct {
	ID        string
	OwnerID   string
	Content   string
	Metadata  map[string]any
	Embedding []float32
	CreatedAt time.Time
}

// Match is a document returned from similarity search together with its
// cosine similarity against the query vector (1.0 is identical).
type Match struct {
	Document
	Similarity float64
}

// ListFilter narrows a list query. Source filters on metadata->>'source',
// Search is a case-insensitive substring match on content.
type ListFilter struct {
	Source string
	Search string
	Limit  int
	Offset int
}

// Page is one page of list results plus the facets the UI renders.
type Page struct {
	Documents []Document
	Total     int
	Sources   []string
}
