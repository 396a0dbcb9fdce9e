package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultFederalRegisterURL = "https://www.federalregister.gov/api/v1"

// FederalRegisterSource reads one page of documents per publication day
// from the public Federal Register API.
type FederalRegisterSource struct {
	baseURL string
	perPage int
	http    *http.Client
	log     *slog.Logger
}

type documentsResponse struct {
	Count       int           `json:"count"`
	NextPageURL string        `json:"next_page_url"`
	Results     []RawDocument `json:"results"`
}

func NewFederalRegisterSource(baseURL string, perPage int, client *http.Client, logger *slog.Logger) (*FederalRegisterSource, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultFederalRegisterURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse federal register base url: %w", err)
	}
	if perPage <= 0 {
		perPage = 100
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FederalRegisterSource{baseURL: baseURL, perPage: perPage, http: client, log: logger}, nil
}

func (s *FederalRegisterSource) Name() string { return SourceFederalRegister }

// Fetch returns no documents and no error when the API answers a day with a
// non-200 status; the day is logged and skipped.
func (s *FederalRegisterSource) Fetch(ctx context.Context, day time.Time) ([]RawDocument, error) {
	dateStr := day.Format(time.DateOnly)
	params := url.Values{}
	params.Set("conditions[publication_date]", dateStr)
	params.Set("per_page", strconv.Itoa(s.perPage))
	params.Set("order", "newest")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/documents.json?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build federal register request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch federal register documents for %s: %w", dateStr, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read federal register response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		s.log.WarnContext(ctx, "federal register fetch skipped",
			slog.String("date", dateStr),
			slog.Int("status", resp.StatusCode),
		)
		return nil, nil
	}

	var parsed documentsResponse
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("decode federal register response for %s: %w", dateStr, err)
		}
	}
	if parsed.Count > len(parsed.Results) {
		s.log.InfoContext(ctx, "federal register day truncated to first page",
			slog.String("date", dateStr),
			slog.Int("count", parsed.Count),
			slog.Int("fetched", len(parsed.Results)),
		)
	}
	return parsed.Results, nil
}
