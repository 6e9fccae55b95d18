// Package merge folds per-provider results into one enriched record.
//
// Merging is pure, total and order-sensitive: the input sequence is in
// provider priority order (primary first) and every output field has a
// fixed precedence rule. Feeding it nothing still yields a well-formed
// record with StatusNone.
package merge

import (
	"github.com/bookgrid/book-enrichment/pkg/provider"
)

// Status describes how complete a merged record is.
type Status string

const (
	// StatusFull means every core field (title and authors) is present.
	StatusFull Status = "full"

	// StatusPartial means some data was found but a core field is absent.
	StatusPartial Status = "partial"

	// StatusNone means no provider contributed anything.
	StatusNone Status = "none"
)

// Record is the merged output: one value per field chosen from the
// contributing provider results, plus which providers contributed and
// how complete the merge turned out. Records are rebuilt fresh on each
// run, never patched in place.
type Record struct {
	Title         *string  `json:"title,omitempty"`
	Subtitle      *string  `json:"subtitle,omitempty"`
	Authors       []string `json:"authors,omitempty"`
	Description   *string  `json:"description,omitempty"`
	Publisher     *string  `json:"publisher,omitempty"`
	PublishedDate *string  `json:"published_date,omitempty"`
	PageCount     *int     `json:"page_count,omitempty"`
	Language      *string  `json:"language,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	Thumbnail     *string  `json:"thumbnail,omitempty"`
	PreviewLink   *string  `json:"preview_link,omitempty"`

	Rating        *float64 `json:"rating,omitempty"`
	ReviewCount   *int     `json:"review_count,omitempty"`
	ReviewSnippet *string  `json:"review_snippet,omitempty"`

	DataSources []provider.ID `json:"data_sources,omitempty"`
	Status      Status        `json:"enrichment_status"`
}

// Field precedence:
//
//	first-wins    title, subtitle, publisher, language, published date, preview link
//	union         authors, categories (de-duplicated, first-seen order)
//	longest-wins  description (more complete text is strictly more useful)
//	max-wins      page count (some providers undercount front/back matter)
//	hi-res first  thumbnail (first result flagged hi-res, else first-wins)
//	supplemental  rating, review count, review snippet (review provider only)

// Merge folds the ordered provider results into a single Record.
func Merge(results []provider.Result) Record {
	rec := Record{Status: StatusNone}

	for i := range results {
		r := &results[i]
		if !r.Contributed() {
			continue
		}

		rec.Title = firstWins(rec.Title, r.Title)
		rec.Subtitle = firstWins(rec.Subtitle, r.Subtitle)
		rec.Publisher = firstWins(rec.Publisher, r.Publisher)
		rec.PublishedDate = firstWins(rec.PublishedDate, r.PublishedDate)
		rec.Language = firstWins(rec.Language, r.Language)
		rec.PreviewLink = firstWins(rec.PreviewLink, r.PreviewLink)

		rec.Authors = union(rec.Authors, r.Authors)
		rec.Categories = union(rec.Categories, r.Categories)

		rec.Description = longestWins(rec.Description, r.Description)
		rec.PageCount = maxWins(rec.PageCount, r.PageCount)

		if r.Provider == provider.NYTimes {
			rec.Rating = firstWins(rec.Rating, r.Rating)
			rec.ReviewCount = firstWins(rec.ReviewCount, r.ReviewCount)
			rec.ReviewSnippet = firstWins(rec.ReviewSnippet, r.ReviewSnippet)
		}

		rec.DataSources = append(rec.DataSources, r.Provider)
	}

	rec.Thumbnail = mergeThumbnail(results)

	switch {
	case len(rec.DataSources) == 0:
		rec.Status = StatusNone
	case rec.Title == nil || len(rec.Authors) == 0:
		rec.Status = StatusPartial
	default:
		rec.Status = StatusFull
	}

	return rec
}

// mergeThumbnail prefers the first result flagged as higher resolution;
// without such a flag the first non-absent thumbnail wins.
func mergeThumbnail(results []provider.Result) *string {
	for i := range results {
		if results[i].HiResThumbnail && results[i].Thumbnail != nil {
			return results[i].Thumbnail
		}
	}
	for i := range results {
		if results[i].Thumbnail != nil {
			return results[i].Thumbnail
		}
	}
	return nil
}

func firstWins[T any](current, candidate *T) *T {
	if current != nil {
		return current
	}
	return candidate
}

func longestWins(current, candidate *string) *string {
	if candidate == nil {
		return current
	}
	if current == nil || len(*candidate) > len(*current) {
		return candidate
	}
	return current
}

func maxWins(current, candidate *int) *int {
	if candidate == nil {
		return current
	}
	if current == nil || *candidate > *current {
		return candidate
	}
	return current
}

// union appends the unseen elements of add to base, keeping first-seen order.
func union(base, add []string) []string {
	if len(add) == 0 {
		return base
	}
	seen := make(map[string]struct{}, len(base))
	for _, v := range base {
		seen[v] = struct{}{}
	}
	for _, v := range add {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		base = append(base, v)
	}
	return base
}
