// Package pipeline keeps the documents table populated from the Federal
// Register: fetch a few days of documents, clean them and hand them to sinks.
package pipeline

import (
	"encoding/json"
	"time"

	"github.com/fedask/fedask/internal/store"
)

// RawDocument is one result as returned by the source. Raw keeps the
// complete upstream object for archiving.
type RawDocument struct {
	DocumentNumber  string          `json:"document_number"`
	Title           string          `json:"title"`
	Type            string          `json:"type"`
	PublicationDate string          `json:"publication_date"`
	Raw             json.RawMessage `json:"-"`
}

func (d *RawDocument) UnmarshalJSON(data []byte) error {
	type plain RawDocument
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*d = RawDocument(decoded)
	d.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Batch is everything one run hands to its sinks.
type Batch struct {
	RunID     string
	Day       time.Time
	Raw       []RawDocument
	Documents []store.Document
}
