package services

import (
	"bytes"
	"encoding/csv"
	"strconv"
)

// ResponseRow is one scored question flattened for CSV export.
type ResponseRow struct {
	Category    string
	Question    string
	Score       int
	SubmittedAt string // ISO8601 suggested; string for CSV simplicity
}

// ExportResponsesCSV renders scored responses in checklist order.
func ExportResponsesCSV(rows []ResponseRow) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"category", "question", "score", "submitted_at"})
	for _, r := range rows {
		rec := []string{r.Category, r.Question, itoa(r.Score), r.SubmittedAt}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportChecklistCSV renders the generated category/question tree.
func ExportChecklistCSV(cats []*ChecklistCategory) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"category", "category_order", "question", "question_order"})
	for _, cat := range cats {
		for _, q := range cat.Questions {
			rec := []string{cat.Name, itoa(cat.Order), q.Text, itoa(q.Order)}
			if err := w.Write(rec); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func itoa(v int) string { return strconv.Itoa(v) }
