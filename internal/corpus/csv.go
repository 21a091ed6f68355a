package corpus

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LoadCSV reads a tabular corpus snapshot. The first row is treated as
// headers; idColumn and textColumn name the identifier and review-text
// columns. When idColumn is empty or absent, the row number becomes the
// document id. TSV files are detected by extension.
func LoadCSV(path, idColumn, textColumn string) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	if strings.ToLower(filepath.Ext(path)) == ".tsv" {
		reader.Comma = '\t'
	}
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing corpus %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("corpus %s has no data rows", path)
	}

	headers := records[0]
	idIdx := -1
	textIdx := -1
	for i, h := range headers {
		switch strings.TrimSpace(h) {
		case idColumn:
			idIdx = i
		case textColumn:
			textIdx = i
		}
	}
	if textIdx < 0 {
		return nil, fmt.Errorf("corpus %s has no %q column (headers: %s)", path, textColumn, strings.Join(headers, ", "))
	}

	docs := make([]Document, 0, len(records)-1)
	for i, row := range records[1:] {
		id := strconv.Itoa(i)
		if idIdx >= 0 && idIdx < len(row) && strings.TrimSpace(row[idIdx]) != "" {
			id = strings.TrimSpace(row[idIdx])
		}
		text := ""
		if textIdx < len(row) {
			text = row[textIdx]
		}
		docs = append(docs, Document{
			ID:       id,
			Position: i,
			Text:     text,
		})
	}
	return docs, nil
}
