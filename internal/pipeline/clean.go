package pipeline

import (
	"strings"
	"time"

	"github.com/fedask/fedask/internal/store"
)

// Clean keeps document_number, title, type (as doc_type) and
// publication_date. A date that does not parse as YYYY-MM-DD becomes NULL.
func Clean(raw []RawDocument) []store.Document {
	docs := make([]store.Document, 0, len(raw))
	for _, item := range raw {
		doc := store.Document{
			DocumentNumber: item.DocumentNumber,
			Title:          item.Title,
			DocType:        item.Type,
		}
		if published, err := time.Parse(time.DateOnly, strings.TrimSpace(item.PublicationDate)); err == nil {
			doc.PublicationDate = &published
		}
		docs = append(docs, doc)
	}
	return docs
}
