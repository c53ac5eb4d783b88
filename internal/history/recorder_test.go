package history

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/khanglvm/tool-preselect/internal/search"
	"github.com/khanglvm/tool-preselect/internal/storage"
)

type mockSink struct {
	mu      sync.Mutex
	records []storage.SearchRecord
	err     error
}

func (m *mockSink) RecordSearch(_ context.Context, record storage.SearchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, record)
	return nil
}

func (m *mockSink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func candidates() []search.Candidate {
	return []search.Candidate{
		{Name: "ExtractNumbers", Group: "UtilityPlugin", Score: 0.91},
		{Name: "ExtractUrls", Group: "UtilityPlugin", Score: 0.78},
	}
}

func TestNewRecorder(t *testing.T) {
	recorder := NewRecorder(&mockSink{}, nil)
	defer recorder.Stop()

	if !recorder.IsEnabled() {
		t.Error("expected recorder to be enabled")
	}
}

func TestNewRecorder_NilSink(t *testing.T) {
	recorder := NewRecorder(nil, nil)
	defer recorder.Stop()

	if recorder.IsEnabled() {
		t.Error("expected recorder without sink to be disabled")
	}

	// Must not panic
	recorder.Record(NewEvent("q", "direct", nil, nil))
}

func TestRecorder_Record(t *testing.T) {
	sink := &mockSink{}
	recorder := NewRecorder(sink, nil)
	defer recorder.Stop()

	recorder.Record(NewEvent("find the numbers in this text", "direct", candidates(), nil))

	deadline := time.Now().Add(time.Second)
	for sink.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if sink.count() != 1 {
		t.Fatalf("expected 1 record, got %d", sink.count())
	}
}

func TestRecorder_StopFlushes(t *testing.T) {
	sink := &mockSink{}
	recorder := NewRecorder(sink, nil)

	for i := 0; i < 25; i++ {
		recorder.Record(NewEvent("query", "hyde", candidates(), nil))
	}

	recorder.Stop()

	if sink.count() != 25 {
		t.Errorf("expected 25 records after stop, got %d", sink.count())
	}

	// Stop is idempotent
	recorder.Stop()
}

func TestRecorder_Disable(t *testing.T) {
	sink := &mockSink{}
	recorder := NewRecorder(sink, nil)

	recorder.Disable()
	if recorder.IsEnabled() {
		t.Error("expected recorder to be disabled")
	}

	recorder.Record(NewEvent("query", "direct", nil, nil))
	recorder.Stop()

	if sink.count() != 0 {
		t.Errorf("expected no records when disabled, got %d", sink.count())
	}
}

func TestRecorder_RecordNonBlocking(t *testing.T) {
	recorder := NewRecorder(&mockSink{}, nil)
	defer recorder.Stop()

	start := time.Now()
	for i := 0; i < queueSize+100; i++ {
		recorder.Record(NewEvent("query", "direct", nil, nil))
	}

	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Record is blocking: took %v", elapsed)
	}
	if size := recorder.QueueSize(); size > queueSize {
		t.Errorf("queue size %d exceeds capacity %d", size, queueSize)
	}
}

func TestRecorder_SinkError(t *testing.T) {
	recorder := NewRecorder(&mockSink{err: errors.New("disk full")}, nil)

	recorder.Record(NewEvent("query", "direct", nil, nil))
	recorder.Stop()

	if !recorder.IsEnabled() {
		t.Error("expected recorder to stay enabled after sink error")
	}
}

func TestRecorder_SQLite(t *testing.T) {
	db := storage.NewStorage(filepath.Join(t.TempDir(), "history.db"), nil)
	if err := db.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer db.Close()

	recorder := NewRecorder(db, nil)
	recorder.Record(NewEvent("compress this image", "hyde", candidates(), nil))
	recorder.Record(NewEvent("compress this image", "direct", nil, nil))
	recorder.Stop()

	searches, err := db.RecentSearches(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentSearches failed: %v", err)
	}
	if len(searches) != 2 {
		t.Fatalf("expected 2 searches, got %d", len(searches))
	}
	for _, s := range searches {
		if s.QueryHash != storage.HashQuery("compress this image") {
			t.Errorf("expected hashed query, got %q", s.QueryHash)
		}
	}
}

func TestEvent_ToRecord(t *testing.T) {
	event := NewEvent("find the numbers", "direct", candidates(), nil)
	record := event.ToRecord()

	if record.SearchID == "" {
		t.Error("expected search ID to be set")
	}
	if record.QueryHash == "find the numbers" || len(record.QueryHash) != 64 {
		t.Errorf("expected SHA256 query hash, got %q", record.QueryHash)
	}
	if record.ResultsCount != 2 {
		t.Errorf("expected 2 results, got %d", record.ResultsCount)
	}
	if record.TopTool != "UtilityPlugin/ExtractNumbers" || record.TopScore != 0.91 {
		t.Errorf("unexpected top candidate: %s %v", record.TopTool, record.TopScore)
	}
	if !record.Timestamp.Equal(event.Timestamp) {
		t.Error("expected timestamp to carry over")
	}

	failed := NewEvent("q", "hyde", nil, errors.New("generation backend unavailable")).ToRecord()
	if failed.Error != "generation backend unavailable" || failed.TopTool != "" {
		t.Errorf("unexpected failed record: %+v", failed)
	}
}
