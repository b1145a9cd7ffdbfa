package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

func sampleResult() *models.QueryResult {
	return &models.QueryResult{
		Question: "What is machine learning?",
		Answer:   "A subfield of artificial intelligence.",
		Sources: []models.RetrievedCandidate{
			{
				Chunk: models.Chunk{
					Text:          "Machine learning is a subfield of artificial intelligence.",
					SourceID:      "intro.pdf",
					SequenceIndex: 3,
					SourceType:    models.SourcePDF,
				},
				Score: 0.87,
			},
		},
		ProcessingTime: 1.25,
	}
}

func TestWriteQueryResult_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteQueryResult(&buf, sampleResult(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{
		"What is machine learning?",
		"A subfield of artificial intelligence.",
		"intro.pdf#3",
		"0.8700",
		"1.25s",
	} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteQueryResult_json(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteQueryResult(&buf, sampleResult(), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.QueryResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Question != "What is machine learning?" || len(decoded.Sources) != 1 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteQueryResult_failed(t *testing.T) {
	var buf bytes.Buffer
	result := &models.QueryResult{Question: "q", Answer: "query failed: timeout", Failed: true}
	if err := WriteQueryResult(&buf, result, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "FAILED: query failed: timeout") {
		t.Errorf("failed result not marked:\n%s", buf.String())
	}
}

func TestWriteBatchResults_text(t *testing.T) {
	results := []*models.QueryResult{
		sampleResult(),
		{Question: "broken?", Answer: "query failed: model unavailable", Failed: true},
	}
	var buf bytes.Buffer
	if err := WriteBatchResults(&buf, results, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "1 questions answered, 1 failed") {
		t.Errorf("missing summary line:\n%s", buf.String())
	}
}

func TestWriteRetrievalResponse_text(t *testing.T) {
	resp := &models.RetrievalResponse{
		Question: "topic?",
		Documents: []*models.RetrievedCandidate{
			{Chunk: models.Chunk{Text: "first", SourceID: "a.txt"}, Score: 0.9},
			{Chunk: models.Chunk{Text: "second", SourceID: "b.txt"}, Score: 0.5},
		},
		TotalCount: 2,
	}
	var buf bytes.Buffer
	if err := WriteRetrievalResponse(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Found 2 documents") {
		t.Errorf("missing count line:\n%s", out)
	}
	if strings.Index(out, "a.txt") > strings.Index(out, "b.txt") {
		t.Error("documents should print in given order")
	}
}

func TestWriteIngestReport_text(t *testing.T) {
	report := &models.IngestReport{SourceID: "notes.txt", SourceType: models.SourceText, ChunksIndexed: 4}
	var buf bytes.Buffer
	if err := WriteIngestReport(&buf, report, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Ingested notes.txt (text): 4 chunks") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestWriteQueryResult_longSourceTruncated(t *testing.T) {
	result := sampleResult()
	result.Sources[0].Chunk.Text = strings.Repeat("x", 500)
	var buf bytes.Buffer
	if err := WriteQueryResult(&buf, result, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), strings.Repeat("x", 200)+"...") {
		t.Error("long source text should be truncated with ellipsis")
	}
	if strings.Contains(buf.String(), strings.Repeat("x", 201)) {
		t.Error("source text exceeded the display limit")
	}
}
