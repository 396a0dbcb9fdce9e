package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"
)

var (
	syntheticTypes    = []string{"Rule", "Proposed Rule", "Notice", "Presidential Document"}
	syntheticAgencies = []string{
		"Environmental Protection Agency",
		"Federal Aviation Administration",
		"Food and Drug Administration",
		"National Oceanic and Atmospheric Administration",
		"Securities and Exchange Commission",
	}
	syntheticSubjects = []string{
		"Air Quality Plans",
		"Airworthiness Directives",
		"Fisheries of the Exclusive Economic Zone",
		"Sunshine Act Meetings",
		"Agency Information Collection Activities",
		"Medical Devices; Exemptions",
	}
)

// SyntheticSource produces deterministic fake documents for local runs
// without network access.
type SyntheticSource struct {
	rnd      *rand.Rand
	perDay   int
	sequence int64
}

func NewSyntheticSource(seed int64, perDay int) *SyntheticSource {
	if perDay <= 0 {
		perDay = 10
	}
	return &SyntheticSource{rnd: rand.New(rand.NewSource(seed)), perDay: perDay}
}

func (s *SyntheticSource) Name() string { return SourceSynthetic }

func (s *SyntheticSource) Fetch(ctx context.Context, day time.Time) ([]RawDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	count := s.perDay/2 + s.rnd.Intn(s.perDay/2+1)
	docs := make([]RawDocument, 0, count)
	for i := 0; i < count; i++ {
		doc, err := s.next(day)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *SyntheticSource) next(day time.Time) (RawDocument, error) {
	s.sequence++
	docType := s.pickType()
	agency := pickOne(s.rnd, syntheticAgencies)
	doc := RawDocument{
		DocumentNumber:  fmt.Sprintf("%04d-%05d", day.Year(), s.sequence),
		Title:           fmt.Sprintf("%s: %s", agency, pickOne(s.rnd, syntheticSubjects)),
		Type:            docType,
		PublicationDate: day.Format(time.DateOnly),
	}
	raw, err := json.Marshal(map[string]any{
		"document_number":  doc.DocumentNumber,
		"title":            doc.Title,
		"type":             doc.Type,
		"publication_date": doc.PublicationDate,
		"agencies":         []map[string]string{{"name": agency}},
		"source":           "fedask-synthetic",
	})
	if err != nil {
		return RawDocument{}, fmt.Errorf("encode synthetic document: %w", err)
	}
	doc.Raw = raw
	return doc, nil
}

func (s *SyntheticSource) pickType() string {
	p := s.rnd.Intn(100)
	switch {
	case p < 60:
		return syntheticTypes[2]
	case p < 80:
		return syntheticTypes[1]
	case p < 95:
		return syntheticTypes[0]
	default:
		return syntheticTypes[3]
	}
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
