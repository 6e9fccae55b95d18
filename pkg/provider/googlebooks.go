package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/bookgrid/book-enrichment/pkg/logging"
	"github.com/bookgrid/book-enrichment/pkg/ratelimit"
	"github.com/rs/zerolog"
)

// GoogleBooksConfig holds the Google Books adapter configuration.
type GoogleBooksConfig struct {
	// APIKey is optional; the volumes endpoint works unauthenticated
	// at a lower quota.
	APIKey string

	// BaseURL overrides the API root (tests point this at a mock server).
	BaseURL string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// RateLimit is the sustained requests-per-second budget.
	RateLimit int
}

// DefaultGoogleBooksConfig returns a safe default configuration.
func DefaultGoogleBooksConfig() GoogleBooksConfig {
	return GoogleBooksConfig{
		BaseURL:   "https://www.googleapis.com/books/v1",
		Timeout:   10 * time.Second,
		RateLimit: 5,
	}
}

// GoogleBooksClient adapts the Google Books volumes API, the primary
// book-data provider.
type GoogleBooksClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *ratelimit.Limiter
	logger     zerolog.Logger
}

// NewGoogleBooks creates the primary provider adapter.
func NewGoogleBooks(cfg GoogleBooksConfig) *GoogleBooksClient {
	def := DefaultGoogleBooksConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = def.RateLimit
	}

	return &GoogleBooksClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		limiter:    ratelimit.New(string(GoogleBooks), cfg.RateLimit),
		logger:     logging.NewLogger("google-books"),
	}
}

// ID implements Provider.
func (c *GoogleBooksClient) ID() ID { return GoogleBooks }

// googleVolumesResponse matches the /volumes search envelope.
type googleVolumesResponse struct {
	TotalItems int            `json:"totalItems"`
	Items      []googleVolume `json:"items"`
}

type googleVolume struct {
	VolumeInfo googleVolumeInfo `json:"volumeInfo"`
}

type googleVolumeInfo struct {
	Title         string   `json:"title"`
	Subtitle      string   `json:"subtitle"`
	Authors       []string `json:"authors"`
	Description   string   `json:"description"`
	Publisher     string   `json:"publisher"`
	PublishedDate string   `json:"publishedDate"`
	PageCount     int      `json:"pageCount"`
	Language      string   `json:"language"`
	Categories    []string `json:"categories"`
	ImageLinks    struct {
		Thumbnail string `json:"thumbnail"`
		Medium    string `json:"medium"`
		Large     string `json:"large"`
	} `json:"imageLinks"`
	PreviewLink   string  `json:"previewLink"`
	AverageRating float64 `json:"averageRating"`
	RatingsCount  int     `json:"ratingsCount"`
}

// Fetch looks up the best match for the query: isbn: search for ISBN
// queries, plain term search for free text.
func (c *GoogleBooksClient) Fetch(ctx context.Context, q Query) (*Result, error) {
	items, err := c.volumes(ctx, c.searchTerm(q), 1)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		c.logger.Debug().Stringer("query", q).Msg("No volumes found")
		return nil, NotFound(GoogleBooks)
	}

	res := c.toResult(items[0].VolumeInfo)
	c.logger.Debug().Stringer("query", q).Msg("Fetched volume")
	return res, nil
}

// Search returns up to limit matches for a free-text or ISBN query.
func (c *GoogleBooksClient) Search(ctx context.Context, q Query, limit int) ([]Result, error) {
	if limit <= 0 || limit > 40 {
		limit = 40 // volumes endpoint caps maxResults at 40
	}

	items, err := c.volumes(ctx, c.searchTerm(q), limit)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	results := make([]Result, 0, len(items))
	for _, item := range items {
		results = append(results, *c.toResult(item.VolumeInfo))
	}
	return results, nil
}

func (c *GoogleBooksClient) searchTerm(q Query) string {
	if q.IsISBN() {
		return "isbn:" + q.ISBN()
	}
	return q.Text()
}

func (c *GoogleBooksClient) volumes(ctx context.Context, term string, limit int) ([]googleVolume, error) {
	params := url.Values{}
	params.Set("q", term)
	params.Set("maxResults", fmt.Sprintf("%d", limit))
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	var resp googleVolumesResponse
	reqURL := fmt.Sprintf("%s/volumes?%s", c.baseURL, params.Encode())
	if err := getJSON(ctx, GoogleBooks, c.httpClient, c.limiter, reqURL, &resp); err != nil {
		return nil, err
	}

	if resp.TotalItems == 0 || len(resp.Items) == 0 {
		return nil, nil
	}
	return resp.Items, nil
}

func (c *GoogleBooksClient) toResult(info googleVolumeInfo) *Result {
	res := &Result{
		Provider:      GoogleBooks,
		Title:         stringOrNil(info.Title),
		Subtitle:      stringOrNil(info.Subtitle),
		Authors:       info.Authors,
		Description:   stringOrNil(info.Description),
		Publisher:     stringOrNil(info.Publisher),
		PublishedDate: stringOrNil(info.PublishedDate),
		PageCount:     intOrNil(info.PageCount),
		Language:      stringOrNil(info.Language),
		Categories:    info.Categories,
		PreviewLink:   stringOrNil(info.PreviewLink),
		ReviewCount:   intOrNil(info.RatingsCount),
	}

	if info.AverageRating > 0 {
		res.Rating = Float(info.AverageRating)
	}

	// Prefer the larger renditions when the volume carries them.
	switch {
	case info.ImageLinks.Large != "":
		res.Thumbnail = String(info.ImageLinks.Large)
		res.HiResThumbnail = true
	case info.ImageLinks.Medium != "":
		res.Thumbnail = String(info.ImageLinks.Medium)
		res.HiResThumbnail = true
	case info.ImageLinks.Thumbnail != "":
		res.Thumbnail = String(info.ImageLinks.Thumbnail)
	}

	return res
}
