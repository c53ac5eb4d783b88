package catalog

import "time"

// ToolRecord describes one catalog entry. Records are immutable once registered;
// registering again creates a new record with a new ID.
type ToolRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Group       string    `json:"group"`
	Description string    `json:"description"`
	Embedding   []float32 `json:"embedding,omitempty"`
	Model       string    `json:"model,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Key returns the natural key used for downstream invocation.
func (r ToolRecord) Key() string {
	return r.Group + "/" + r.Name
}

// SearchHit is a record matched by a search with its similarity score.
type SearchHit struct {
	Record ToolRecord `json:"record"`
	Score  float64    `json:"score"`
}

// Neighbor is a raw nearest-neighbor result from a VectorStore.
type Neighbor struct {
	ID    string
	Score float64
}
