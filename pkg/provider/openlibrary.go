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

// OpenLibraryConfig holds the Open Library adapter configuration.
// Open Library needs no API key but asks clients to stay at 1 req/s.
type OpenLibraryConfig struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit int
}

// DefaultOpenLibraryConfig returns a safe default configuration.
func DefaultOpenLibraryConfig() OpenLibraryConfig {
	return OpenLibraryConfig{
		BaseURL:   "https://openlibrary.org",
		Timeout:   10 * time.Second,
		RateLimit: 1,
	}
}

// OpenLibraryClient adapts the Open Library books API, the fallback
// book-data provider.
type OpenLibraryClient struct {
	httpClient *http.Client
	baseURL    string
	limiter    *ratelimit.Limiter
	logger     zerolog.Logger
}

// NewOpenLibrary creates the fallback provider adapter.
func NewOpenLibrary(cfg OpenLibraryConfig) *OpenLibraryClient {
	def := DefaultOpenLibraryConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = def.RateLimit
	}

	return &OpenLibraryClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		limiter:    ratelimit.New(string(OpenLibrary), cfg.RateLimit),
		logger:     logging.NewLogger("open-library"),
	}
}

// ID implements Provider.
func (c *OpenLibraryClient) ID() ID { return OpenLibrary }

// olBookData matches api/books?jscmd=data entries.
type olBookData struct {
	Title      string `json:"title"`
	Subtitle   string `json:"subtitle"`
	Publishers []struct {
		Name string `json:"name"`
	} `json:"publishers"`
	PublishDate string `json:"publish_date"`
	Authors     []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Subjects []struct {
		Name string `json:"name"`
	} `json:"subjects"`
	NumberOfPages int    `json:"number_of_pages"`
	URL           string `json:"url"`
	Cover         struct {
		Small  string `json:"small"`
		Medium string `json:"medium"`
		Large  string `json:"large"`
	} `json:"cover"`
}

// olSearchResponse matches search.json.
type olSearchResponse struct {
	NumFound int `json:"numFound"`
	Docs     []struct {
		Title            string   `json:"title"`
		AuthorNames      []string `json:"author_name"`
		ISBN             []string `json:"isbn"`
		FirstPublishYear int      `json:"first_publish_year"`
		Language         []string `json:"language"`
		Publisher        []string `json:"publisher"`
		Subject          []string `json:"subject"`
		NumberOfPagesMed int      `json:"number_of_pages_median"`
	} `json:"docs"`
}

// Fetch resolves an ISBN through the books endpoint; free-text queries
// go through search.json and return the best match.
func (c *OpenLibraryClient) Fetch(ctx context.Context, q Query) (*Result, error) {
	if !q.IsISBN() {
		results, err := c.Search(ctx, q, 1)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return nil, NotFound(OpenLibrary)
		}
		return &results[0], nil
	}

	bibkey := "ISBN:" + q.ISBN()
	reqURL := fmt.Sprintf("%s/api/books?bibkeys=%s&format=json&jscmd=data", c.baseURL, bibkey)

	var resp map[string]olBookData
	if err := getJSON(ctx, OpenLibrary, c.httpClient, c.limiter, reqURL, &resp); err != nil {
		return nil, err
	}

	data, ok := resp[bibkey]
	if !ok || data.Title == "" {
		c.logger.Debug().Str("isbn", q.ISBN()).Msg("No book data found")
		return nil, NotFound(OpenLibrary)
	}

	res := c.toResult(data, q.ISBN())
	c.logger.Debug().Str("isbn", q.ISBN()).Msg("Fetched book data")
	return res, nil
}

// Search queries search.json for free-text matches.
func (c *OpenLibraryClient) Search(ctx context.Context, q Query, limit int) ([]Result, error) {
	if limit <= 0 || limit > 100 {
		limit = 100 // search.json caps limit at 100
	}

	params := url.Values{}
	params.Set("q", c.searchTerm(q))
	params.Set("limit", fmt.Sprintf("%d", limit))

	var resp olSearchResponse
	reqURL := fmt.Sprintf("%s/search.json?%s", c.baseURL, params.Encode())
	if err := getJSON(ctx, OpenLibrary, c.httpClient, c.limiter, reqURL, &resp); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	results := make([]Result, 0, len(resp.Docs))
	for _, doc := range resp.Docs {
		res := Result{
			Provider:   OpenLibrary,
			Title:      stringOrNil(doc.Title),
			Authors:    doc.AuthorNames,
			Categories: doc.Subject,
			PageCount:  intOrNil(doc.NumberOfPagesMed),
		}
		if doc.FirstPublishYear > 0 {
			res.PublishedDate = String(fmt.Sprintf("%d", doc.FirstPublishYear))
		}
		if len(doc.Language) > 0 {
			res.Language = stringOrNil(doc.Language[0])
		}
		if len(doc.Publisher) > 0 {
			res.Publisher = stringOrNil(doc.Publisher[0])
		}
		results = append(results, res)
	}
	return results, nil
}

func (c *OpenLibraryClient) searchTerm(q Query) string {
	if q.IsISBN() {
		return "isbn:" + q.ISBN()
	}
	return q.Text()
}

func (c *OpenLibraryClient) toResult(data olBookData, isbn13 string) *Result {
	res := &Result{
		Provider:      OpenLibrary,
		Title:         stringOrNil(data.Title),
		Subtitle:      stringOrNil(data.Subtitle),
		PublishedDate: stringOrNil(data.PublishDate),
		PageCount:     intOrNil(data.NumberOfPages),
		PreviewLink:   stringOrNil(data.URL),
	}

	if len(data.Publishers) > 0 {
		res.Publisher = stringOrNil(data.Publishers[0].Name)
	}

	for _, a := range data.Authors {
		if a.Name != "" {
			res.Authors = append(res.Authors, a.Name)
		}
	}
	for _, s := range data.Subjects {
		if s.Name != "" {
			res.Categories = append(res.Categories, s.Name)
		}
	}

	switch {
	case data.Cover.Large != "":
		res.Thumbnail = String(data.Cover.Large)
		res.HiResThumbnail = true
	case data.Cover.Medium != "":
		res.Thumbnail = String(data.Cover.Medium)
	case data.Cover.Small != "":
		res.Thumbnail = String(data.Cover.Small)
	}

	if res.PreviewLink == nil && isbn13 != "" {
		res.PreviewLink = String(c.baseURL + "/isbn/" + isbn13)
	}

	return res
}
