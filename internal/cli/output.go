// Package cli formats pipeline results for terminal output.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// OutputFormat selects how results are rendered.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteQueryResult writes one answer to w in the given format.
func WriteQueryResult(w io.Writer, result *models.QueryResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, result)
	}
	writeQueryResultText(w, result)
	return nil
}

func writeQueryResultText(w io.Writer, result *models.QueryResult) {
	fmt.Fprintf(w, "\nQ: %s\n", result.Question)
	if result.Failed {
		fmt.Fprintf(w, "FAILED: %s\n", result.Answer)
		return
	}
	fmt.Fprintf(w, "A: %s\n", result.Answer)
	fmt.Fprintf(w, "(%.2fs)\n", result.ProcessingTime)
	if len(result.Sources) > 0 {
		fmt.Fprintf(w, "\nSources:\n")
		for i, src := range result.Sources {
			writeCandidate(w, i+1, &src)
		}
	}
}

// WriteBatchResults writes batch answers to w in the given format.
func WriteBatchResults(w io.Writer, results []*models.QueryResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, results)
	}
	failed := 0
	for _, result := range results {
		writeQueryResultText(w, result)
		if result.Failed {
			failed++
		}
	}
	fmt.Fprintf(w, "\n%d questions answered, %d failed\n", len(results)-failed, failed)
	return nil
}

// WriteRetrievalResponse writes a documents-only retrieval to w.
func WriteRetrievalResponse(w io.Writer, response *models.RetrievalResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d documents for: %s\n", response.TotalCount, response.Question)
	for i, doc := range response.Documents {
		writeCandidate(w, i+1, doc)
	}
	return nil
}

func writeCandidate(w io.Writer, rank int, cand *models.RetrievedCandidate) {
	fmt.Fprintf(w, "  %d. [%.4f] %s#%d\n", rank, cand.Score, cand.Chunk.SourceID, cand.Chunk.SequenceIndex)
	fmt.Fprintf(w, "     %s\n", utils.Truncate(cand.Chunk.Text, 200))
}

// WriteIngestReport writes one document's ingest outcome to w.
func WriteIngestReport(w io.Writer, report *models.IngestReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	fmt.Fprintf(w, "Ingested %s (%s): %d chunks\n", report.SourceID, report.SourceType, report.ChunksIndexed)
	return nil
}

// WriteDirectoryReport writes a directory batch summary to w.
func WriteDirectoryReport(w io.Writer, report *indexer.DirectoryReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	for _, fileReport := range report.Reports {
		fmt.Fprintf(w, "  %s: %d chunks\n", fileReport.SourceID, fileReport.ChunksIndexed)
	}
	fmt.Fprintf(w, "%d files: %d ingested, %d failed\n", report.Files, report.Succeeded, report.Failed)
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
