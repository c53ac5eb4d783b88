/*
Package history records search events in the background.

Every interactive, single-shot or MCP search produces an Event. The Recorder
queues events without blocking the caller and writes them to storage in batches.
Queries are stored as SHA256 hashes only.
*/
package history

import (
	"time"

	"github.com/google/uuid"

	"github.com/khanglvm/tool-preselect/internal/search"
	"github.com/khanglvm/tool-preselect/internal/storage"
)

// Event is a single search against the catalog.
type Event struct {
	// Query is the raw user request. It is hashed before it is stored.
	Query string

	// Pipeline is "direct" or "hyde".
	Pipeline string

	// Candidates are the accepted matches, best first.
	Candidates []search.Candidate

	// Err is the backend failure, if any.
	Err error

	// Timestamp is when the search finished.
	Timestamp time.Time
}

// NewEvent creates an event stamped with the current time.
func NewEvent(query, pipeline string, candidates []search.Candidate, err error) Event {
	return Event{
		Query:      query,
		Pipeline:   pipeline,
		Candidates: candidates,
		Err:        err,
		Timestamp:  time.Now(),
	}
}

// ToRecord converts the event to its storage row.
func (e Event) ToRecord() storage.SearchRecord {
	record := storage.SearchRecord{
		SearchID:     uuid.NewString(),
		QueryHash:    storage.HashQuery(e.Query),
		Pipeline:     e.Pipeline,
		Timestamp:    e.Timestamp,
		ResultsCount: len(e.Candidates),
	}
	if len(e.Candidates) > 0 {
		record.TopTool = e.Candidates[0].Key()
		record.TopScore = e.Candidates[0].Score
	}
	if e.Err != nil {
		record.Error = e.Err.Error()
	}
	return record
}
