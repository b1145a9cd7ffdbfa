package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF extracts text from the selected zero-based pages (nil means all),
// keeping element order and repairing words hyphenated across line breaks.
func extractPDF(content []byte, pages []int) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}

	var include map[int]bool
	if pages != nil {
		include = make(map[int]bool, len(pages))
		for _, p := range pages {
			include[p] = true
		}
	}

	var lines []string
	numPages := r.NumPage()
	for i := 0; i < numPages; i++ {
		if include != nil && !include[i] {
			continue
		}
		page := r.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i+1, err)
		}
		for _, row := range rows {
			var b strings.Builder
			for _, word := range row.Content {
				b.WriteString(word.S)
			}
			if line := strings.TrimSpace(b.String()); line != "" {
				lines = append(lines, line)
			}
		}
	}
	return JoinLines(lines), nil
}

// JoinLines concatenates extracted lines. A line ending in "-" is a word broken
// at a line break: the hyphen is stripped and the fragment joined to the next
// line without a space. All other lines keep a newline separator.
func JoinLines(lines []string) string {
	var b strings.Builder
	for i, line := range lines {
		if strings.HasSuffix(line, "-") {
			b.WriteString(strings.TrimSuffix(line, "-"))
			continue
		}
		b.WriteString(line)
		if i < len(lines)-1 {
			b.WriteByte('\n')
		}
	}
	return strings.TrimSpace(b.String())
}
