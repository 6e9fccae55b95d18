package provider

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/bookgrid/book-enrichment/pkg/logging"
	"github.com/bookgrid/book-enrichment/pkg/ratelimit"
	"github.com/rs/zerolog"
)

// NYTimesConfig holds the NY Times Books adapter configuration.
// An API key is mandatory; without one every call is a permanent
// failure and the orchestrator degrades to the remaining providers.
type NYTimesConfig struct {
	APIKey    string
	BaseURL   string
	Timeout   time.Duration
	RateLimit int
}

// DefaultNYTimesConfig returns a safe default configuration.
// The Books API quota is 500 requests/day and 5 requests/minute,
// so the limiter is deliberately slow.
func DefaultNYTimesConfig() NYTimesConfig {
	return NYTimesConfig{
		BaseURL:   "https://api.nytimes.com/svc/books/v3",
		Timeout:   10 * time.Second,
		RateLimit: 1,
	}
}

// NYTimesClient adapts the NY Times Books API, the supplemental
// review-oriented provider. It contributes only review fields.
type NYTimesClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *ratelimit.Limiter
	logger     zerolog.Logger
}

// NewNYTimes creates the supplemental provider adapter.
func NewNYTimes(cfg NYTimesConfig) *NYTimesClient {
	def := DefaultNYTimesConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = def.RateLimit
	}

	return &NYTimesClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		limiter:    ratelimit.NewWithBurst(string(NYTimes), cfg.RateLimit, 1),
		logger:     logging.NewLogger("ny-times"),
	}
}

// ID implements Provider.
func (c *NYTimesClient) ID() ID { return NYTimes }

// nytReviewsResponse matches reviews.json.
type nytReviewsResponse struct {
	NumResults int `json:"num_results"`
	Results    []struct {
		Summary     string `json:"summary"`
		BookTitle   string `json:"book_title"`
		BookAuthor  string `json:"book_author"`
		ReviewURL   string `json:"url"`
		Byline      string `json:"byline"`
		PublishDate string `json:"publication_dt"`
	} `json:"results"`
}

// nytListResponse matches lists/current/{list}.json.
type nytListResponse struct {
	Results struct {
		ListName string `json:"list_name"`
		Books    []struct {
			Rank          int    `json:"rank"`
			WeeksOnList   int    `json:"weeks_on_list"`
			PrimaryISBN13 string `json:"primary_isbn13"`
			PrimaryISBN10 string `json:"primary_isbn10"`
			Title         string `json:"title"`
			Author        string `json:"author"`
			Description   string `json:"description"`
			BookImage     string `json:"book_image"`
		} `json:"books"`
	} `json:"results"`
}

// BestsellerEntry is one book on a NY Times bestseller list.
type BestsellerEntry struct {
	Rank        int    `json:"rank"`
	WeeksOnList int    `json:"weeks_on_list"`
	ISBN13      string `json:"isbn13"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

// Fetch retrieves review data for an ISBN. Reviews are keyed by ISBN
// only, so free-text queries are a NotFound by construction.
func (c *NYTimesClient) Fetch(ctx context.Context, q Query) (*Result, error) {
	if c.apiKey == "" {
		return nil, Permanent(NYTimes, "no API key configured", nil)
	}
	if !q.IsISBN() {
		return nil, NotFound(NYTimes)
	}

	params := url.Values{}
	params.Set("isbn", q.ISBN())
	params.Set("api-key", c.apiKey)

	var resp nytReviewsResponse
	reqURL := c.baseURL + "/reviews.json?" + params.Encode()
	if err := getJSON(ctx, NYTimes, c.httpClient, c.limiter, reqURL, &resp); err != nil {
		return nil, err
	}

	if resp.NumResults == 0 || len(resp.Results) == 0 {
		c.logger.Debug().Str("isbn", q.ISBN()).Msg("No review found")
		return nil, NotFound(NYTimes)
	}

	res := &Result{
		Provider:      NYTimes,
		ReviewCount:   Int(resp.NumResults),
		ReviewSnippet: stringOrNil(resp.Results[0].Summary),
	}
	c.logger.Debug().Str("isbn", q.ISBN()).Int("reviews", resp.NumResults).Msg("Fetched reviews")
	return res, nil
}

// Bestsellers retrieves the current entries of a named bestseller list,
// for example "hardcover-fiction".
func (c *NYTimesClient) Bestsellers(ctx context.Context, listName string) ([]BestsellerEntry, error) {
	if c.apiKey == "" {
		return nil, Permanent(NYTimes, "no API key configured", nil)
	}
	if listName == "" {
		listName = "hardcover-fiction"
	}

	params := url.Values{}
	params.Set("api-key", c.apiKey)

	var resp nytListResponse
	reqURL := c.baseURL + "/lists/current/" + url.PathEscape(listName) + ".json?" + params.Encode()
	if err := getJSON(ctx, NYTimes, c.httpClient, c.limiter, reqURL, &resp); err != nil {
		return nil, err
	}

	entries := make([]BestsellerEntry, 0, len(resp.Results.Books))
	for _, b := range resp.Results.Books {
		isbn13 := b.PrimaryISBN13
		if isbn13 == "" && b.PrimaryISBN10 != "" {
			isbn13 = b.PrimaryISBN10
		}
		entries = append(entries, BestsellerEntry{
			Rank:        b.Rank,
			WeeksOnList: b.WeeksOnList,
			ISBN13:      isbn13,
			Title:       b.Title,
			Author:      b.Author,
			Description: b.Description,
			Image:       b.BookImage,
		})
	}

	c.logger.Debug().Str("list", listName).Int("entries", len(entries)).Msg("Fetched bestseller list")
	return entries, nil
}
