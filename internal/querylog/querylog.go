// Package querylog appends one JSON record per answered question to a daily
// log file, keeping an auditable trail of what was asked and which chunks
// grounded each answer.
package querylog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

// Record is one logged query.
type Record struct {
	Timestamp      string         `json:"timestamp"`
	Question       string         `json:"question"`
	Answer         string         `json:"answer"`
	ProcessingTime float64        `json:"processing_time"`
	Sources        []SourceRecord `json:"sources"`
}

// SourceRecord is one retrieved chunk in rank order.
type SourceRecord struct {
	Rank            int            `json:"rank"`
	SimilarityScore float64        `json:"similarity_score"`
	Metadata        SourceMetadata `json:"metadata"`
	FullContent     string         `json:"full_content"`
}

// SourceMetadata locates the chunk within its source document.
type SourceMetadata struct {
	Source        string `json:"source"`
	SequenceIndex int    `json:"sequence_index"`
	SourceType    string `json:"source_type"`
}

// Logger writes records to query_log_YYYYMMDD.json files under dir,
// one JSON object per line, safe for concurrent use.
type Logger struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// New creates the log directory if needed and returns a Logger.
func New(dir string) (*Logger, error) {
	if dir == "" {
		return nil, fmt.Errorf("query log directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create query log directory: %w", err)
	}
	return &Logger{dir: dir, now: time.Now}, nil
}

// Log appends one record built from result to today's file.
func (l *Logger) Log(result *models.QueryResult) error {
	now := l.now()
	rec := Record{
		Timestamp:      now.Format(time.RFC3339),
		Question:       result.Question,
		Answer:         result.Answer,
		ProcessingTime: result.ProcessingTime,
		Sources:        make([]SourceRecord, 0, len(result.Sources)),
	}
	for i, src := range result.Sources {
		rec.Sources = append(rec.Sources, SourceRecord{
			Rank:            i + 1,
			SimilarityScore: src.Score,
			Metadata: SourceMetadata{
				Source:        src.Chunk.SourceID,
				SequenceIndex: src.Chunk.SequenceIndex,
				SourceType:    string(src.Chunk.SourceType),
			},
			FullContent: src.Chunk.Text,
		})
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal query log record: %w", err)
	}

	path := filepath.Join(l.dir, fmt.Sprintf("query_log_%s.json", now.Format("20060102")))

	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open query log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write query log: %w", err)
	}
	return nil
}
