package provider

// Result is the raw, source-specific data one adapter returned for one
// query, mapped onto the common field set. Every field is optional:
// a nil pointer or empty slice means the source did not expose it,
// which is distinct from an empty string. Results are produced once
// per call and never mutated.
type Result struct {
	Provider ID `json:"provider"`

	Title         *string  `json:"title,omitempty"`
	Subtitle      *string  `json:"subtitle,omitempty"`
	Authors       []string `json:"authors,omitempty"`
	Description   *string  `json:"description,omitempty"`
	Publisher     *string  `json:"publisher,omitempty"`
	PublishedDate *string  `json:"published_date,omitempty"`
	PageCount     *int     `json:"page_count,omitempty"`
	Language      *string  `json:"language,omitempty"`
	Categories    []string `json:"categories,omitempty"`

	// Thumbnail is the cover image URL. HiResThumbnail is set when the
	// source offered a larger rendition than its default thumbnail.
	Thumbnail      *string `json:"thumbnail,omitempty"`
	HiResThumbnail bool    `json:"hi_res_thumbnail,omitempty"`

	PreviewLink *string `json:"preview_link,omitempty"`

	// Review-oriented fields. The merge engine only takes these from
	// the supplemental provider.
	Rating        *float64 `json:"rating,omitempty"`
	ReviewCount   *int     `json:"review_count,omitempty"`
	ReviewSnippet *string  `json:"review_snippet,omitempty"`
}

// Contributed reports whether the result carries at least one
// non-absent field beyond its provider tag.
func (r *Result) Contributed() bool {
	return r.Title != nil ||
		r.Subtitle != nil ||
		len(r.Authors) > 0 ||
		r.Description != nil ||
		r.Publisher != nil ||
		r.PublishedDate != nil ||
		r.PageCount != nil ||
		r.Language != nil ||
		len(r.Categories) > 0 ||
		r.Thumbnail != nil ||
		r.PreviewLink != nil ||
		r.Rating != nil ||
		r.ReviewCount != nil ||
		r.ReviewSnippet != nil
}

// Complete reports whether the result alone covers the core book
// fields: title, authors, description, page count, categories and
// cover. The orchestrator uses this to skip the fallback provider.
func (r *Result) Complete() bool {
	return r.Title != nil &&
		len(r.Authors) > 0 &&
		r.Description != nil &&
		r.PageCount != nil &&
		len(r.Categories) > 0 &&
		r.Thumbnail != nil
}

// String returns a pointer to s. Convenience for building results.
func String(s string) *string { return &s }

// Int returns a pointer to i.
func Int(i int) *int { return &i }

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }

// stringOrNil maps a source's empty string onto an absent field.
func stringOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// intOrNil maps a source's zero count onto an absent field.
func intOrNil(i int) *int {
	if i <= 0 {
		return nil
	}
	return &i
}
