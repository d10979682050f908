package webmeta

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	apperrors "devpath/backend/pkg/errors"
	"devpath/backend/pkg/logger"
)

// Metadata is what we can learn about a resource URL from its markup
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Fetcher inspects resource URLs so that resources added without a title can
// be enriched from the page itself
type Fetcher struct {
	client *http.Client
	logger *zap.Logger
}

// NewFetcher creates a fetcher with the given per-request timeout
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		logger: logger.Get(),
	}
}

// Fetch downloads the page at url and extracts its title and description
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.NewMetadataFetchFailed(url, err)
	}
	req.Header.Set("User-Agent", "devpath/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperrors.NewMetadataFetchFailed(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewMetadataFetchFailed(url, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, apperrors.NewMetadataFetchFailed(url, err)
	}

	meta := &Metadata{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}
	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		meta.Description = strings.TrimSpace(desc)
	}
	// Open Graph title wins when the document title is empty
	if meta.Title == "" {
		if ogTitle, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
			meta.Title = strings.TrimSpace(ogTitle)
		}
	}

	f.logger.Debug("Resource metadata fetched",
		zap.String("url", url),
		zap.String("title", meta.Title),
	)
	return meta, nil
}
