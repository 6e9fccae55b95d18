package enrich

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bookgrid/book-enrichment/pkg/cache"
	"github.com/bookgrid/book-enrichment/pkg/merge"
	"github.com/bookgrid/book-enrichment/pkg/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider is a scriptable Provider for orchestration tests. Each
// Fetch pops the next response from the script; once the script is
// exhausted the last response repeats.
type fakeProvider struct {
	mu     sync.Mutex
	id     provider.ID
	script []fakeResponse
	calls  int
}

type fakeResponse struct {
	result *provider.Result
	err    error
}

func (f *fakeProvider) ID() provider.ID { return f.id }

func (f *fakeProvider) Fetch(ctx context.Context, q provider.Query) (*provider.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx := f.calls
	f.calls++
	if idx >= len(f.script) {
		idx = len(f.script) - 1
	}
	if idx < 0 {
		return nil, provider.NotFound(f.id)
	}
	r := f.script[idx]
	return r.result, r.err
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fullResult(id provider.ID) *provider.Result {
	return &provider.Result{
		Provider:    id,
		Title:       provider.String("Faust"),
		Authors:     []string{"Johann Wolfgang von Goethe"},
		Description: provider.String("A scholar bargains with the devil."),
		PageCount:   provider.Int(300),
		Categories:  []string{"Drama"},
		Thumbnail:   provider.String("http://img/faust.jpg"),
	}
}

func partialResult(id provider.ID) *provider.Result {
	return &provider.Result{
		Provider: id,
		Title:    provider.String("Faust"),
		Authors:  []string{"Johann Wolfgang von Goethe"},
	}
}

func testConfig(primary, fallback, supplemental provider.Provider) Config {
	return Config{
		Primary:        primary,
		Fallback:       fallback,
		Supplemental:   supplemental,
		Timeout:        time.Second,
		MaxRetries:     1,
		InitialBackoff: time.Millisecond,
	}
}

func mustQueryISBN(t *testing.T, raw string) provider.Query {
	t.Helper()
	q, err := provider.QueryISBN(raw)
	require.NoError(t, err)
	return q
}

func TestNew_RequiresPrimary(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestNew_RejectsDuplicateProviders(t *testing.T) {
	p := &fakeProvider{id: provider.GoogleBooks}
	dup := &fakeProvider{id: provider.GoogleBooks}

	_, err := New(testConfig(p, dup, nil))
	assert.Error(t, err)
}

func TestNew_RejectsUnknownProviderID(t *testing.T) {
	_, err := New(testConfig(&fakeProvider{id: "goodreads"}, nil, nil))
	assert.Error(t, err)
}

func TestEnrich_EmptyQuery(t *testing.T) {
	o, err := New(testConfig(&fakeProvider{id: provider.GoogleBooks}, nil, nil))
	require.NoError(t, err)

	_, err = o.Enrich(context.Background(), provider.Query{})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestEnrich_AllProvidersContribute(t *testing.T) {
	primary := &fakeProvider{id: provider.GoogleBooks, script: []fakeResponse{
		{result: partialResult(provider.GoogleBooks)},
	}}
	fallback := &fakeProvider{id: provider.OpenLibrary, script: []fakeResponse{
		{result: &provider.Result{
			Provider:  provider.OpenLibrary,
			Publisher: provider.String("Mohr Siebeck"),
			PageCount: provider.Int(300),
		}},
	}}
	supplemental := &fakeProvider{id: provider.NYTimes, script: []fakeResponse{
		{result: &provider.Result{
			Provider:      provider.NYTimes,
			ReviewCount:   provider.Int(10),
			ReviewSnippet: provider.String("A sweeping epic."),
		}},
	}}

	o, err := New(testConfig(primary, fallback, supplemental))
	require.NoError(t, err)

	rec, err := o.Enrich(context.Background(), mustQueryISBN(t, "9783161484100"))
	require.NoError(t, err)

	assert.Equal(t, merge.StatusFull, rec.Status)
	assert.Equal(t, "Faust", *rec.Title)
	assert.Equal(t, "Mohr Siebeck", *rec.Publisher)
	assert.Equal(t, "A sweeping epic.", *rec.ReviewSnippet)
	assert.Equal(t,
		[]provider.ID{provider.GoogleBooks, provider.OpenLibrary, provider.NYTimes},
		rec.DataSources)
	assert.Equal(t, 1, primary.callCount())
	assert.Equal(t, 1, fallback.callCount())
	assert.Equal(t, 1, supplemental.callCount())
}

func TestEnrich_ShortCircuitSkipsFallbackNotSupplemental(t *testing.T) {
	primary := &fakeProvider{id: provider.GoogleBooks, script: []fakeResponse{
		{result: fullResult(provider.GoogleBooks)},
	}}
	fallback := &fakeProvider{id: provider.OpenLibrary}
	supplemental := &fakeProvider{id: provider.NYTimes, script: []fakeResponse{
		{result: &provider.Result{
			Provider:    provider.NYTimes,
			ReviewCount: provider.Int(3),
		}},
	}}

	o, err := New(testConfig(primary, fallback, supplemental))
	require.NoError(t, err)

	rec, err := o.Enrich(context.Background(), mustQueryISBN(t, "9783161484100"))
	require.NoError(t, err)

	assert.Equal(t, 0, fallback.callCount(), "complete primary result must skip the fallback")
	assert.Equal(t, 1, supplemental.callCount(), "supplemental is consulted regardless")
	assert.Equal(t, []provider.ID{provider.GoogleBooks, provider.NYTimes}, rec.DataSources)
}

func TestEnrich_IncompletePrimaryStillCallsFallback(t *testing.T) {
	primary := &fakeProvider{id: provider.GoogleBooks, script: []fakeResponse{
		{result: partialResult(provider.GoogleBooks)},
	}}
	fallback := &fakeProvider{id: provider.OpenLibrary, script: []fakeResponse{
		{err: provider.NotFound(provider.OpenLibrary)},
	}}

	o, err := New(testConfig(primary, fallback, nil))
	require.NoError(t, err)

	_, err = o.Enrich(context.Background(), mustQueryISBN(t, "9783161484100"))
	require.NoError(t, err)

	assert.Equal(t, 1, fallback.callCount())
}

func TestEnrich_TransientRetriedOnceThenDowngraded(t *testing.T) {
	primary := &fakeProvider{id: provider.GoogleBooks, script: []fakeResponse{
		{err: provider.Transient(provider.GoogleBooks, "503", nil)},
		{err: provider.Transient(provider.GoogleBooks, "503", nil)},
	}}

	o, err := New(testConfig(primary, nil, nil))
	require.NoError(t, err)

	rec, err := o.Enrich(context.Background(), mustQueryISBN(t, "9783161484100"))
	require.NoError(t, err, "a persistently failing provider is treated as having no data")

	assert.Equal(t, 2, primary.callCount(), "one retry after the initial attempt")
	assert.Equal(t, merge.StatusNone, rec.Status)
	assert.Empty(t, rec.DataSources)
}

func TestEnrich_TransientRecoversOnRetry(t *testing.T) {
	primary := &fakeProvider{id: provider.GoogleBooks, script: []fakeResponse{
		{err: provider.Transient(provider.GoogleBooks, "503", nil)},
		{result: partialResult(provider.GoogleBooks)},
	}}

	o, err := New(testConfig(primary, nil, nil))
	require.NoError(t, err)

	rec, err := o.Enrich(context.Background(), mustQueryISBN(t, "9783161484100"))
	require.NoError(t, err)

	assert.Equal(t, 2, primary.callCount())
	assert.Equal(t, merge.StatusFull, rec.Status)
}

func TestEnrich_PermanentNotRetried(t *testing.T) {
	primary := &fakeProvider{id: provider.GoogleBooks, script: []fakeResponse{
		{err: provider.Permanent(provider.GoogleBooks, "invalid API key", nil)},
	}}

	o, err := New(testConfig(primary, nil, nil))
	require.NoError(t, err)

	rec, err := o.Enrich(context.Background(), mustQueryISBN(t, "9783161484100"))
	require.NoError(t, err)

	assert.Equal(t, 1, primary.callCount())
	assert.Equal(t, merge.StatusNone, rec.Status)
}

func TestEnrich_AllNotFound(t *testing.T) {
	primary := &fakeProvider{id: provider.GoogleBooks, script: []fakeResponse{
		{err: provider.NotFound(provider.GoogleBooks)},
	}}
	fallback := &fakeProvider{id: provider.OpenLibrary, script: []fakeResponse{
		{err: provider.NotFound(provider.OpenLibrary)},
	}}

	o, err := New(testConfig(primary, fallback, nil))
	require.NoError(t, err)

	rec, err := o.Enrich(context.Background(), mustQueryISBN(t, "9783161484100"))
	require.NoError(t, err)

	assert.Equal(t, merge.StatusNone, rec.Status)
	assert.Empty(t, rec.DataSources)
}

func TestEnrich_CacheHitSkipsProvider(t *testing.T) {
	primary := &fakeProvider{id: provider.GoogleBooks, script: []fakeResponse{
		{result: partialResult(provider.GoogleBooks)},
	}}

	cfg := testConfig(primary, nil, nil)
	cfg.Cache = cache.New(cache.NewMemoryStore(), time.Hour)

	o, err := New(cfg)
	require.NoError(t, err)

	q := mustQueryISBN(t, "9783161484100")

	_, err = o.Enrich(context.Background(), q)
	require.NoError(t, err)
	rec, err := o.Enrich(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, 1, primary.callCount(), "second run must be served from cache")
	assert.Equal(t, "Faust", *rec.Title)
}

func TestEnrich_NegativeResultsNotCached(t *testing.T) {
	primary := &fakeProvider{id: provider.GoogleBooks, script: []fakeResponse{
		{err: provider.NotFound(provider.GoogleBooks)},
		{result: partialResult(provider.GoogleBooks)},
	}}

	cfg := testConfig(primary, nil, nil)
	cfg.Cache = cache.New(cache.NewMemoryStore(), time.Hour)

	o, err := New(cfg)
	require.NoError(t, err)

	q := mustQueryISBN(t, "9783161484100")

	rec, err := o.Enrich(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, merge.StatusNone, rec.Status)

	// The miss was not cached, so the next run hits the provider again.
	rec, err = o.Enrich(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, merge.StatusFull, rec.Status)
	assert.Equal(t, 2, primary.callCount())
}

func TestEnrich_ContextCancellation(t *testing.T) {
	primary := &fakeProvider{id: provider.GoogleBooks, script: []fakeResponse{
		{result: partialResult(provider.GoogleBooks)},
	}}

	o, err := New(testConfig(primary, nil, nil))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = o.Enrich(ctx, mustQueryISBN(t, "9783161484100"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnrichAny_MergesAcrossISBNs(t *testing.T) {
	primary := &fakeProvider{id: provider.GoogleBooks, script: []fakeResponse{
		{result: partialResult(provider.GoogleBooks)},
		{result: &provider.Result{
			Provider:  provider.GoogleBooks,
			Publisher: provider.String("Mohr Siebeck"),
		}},
	}}

	o, err := New(testConfig(primary, nil, nil))
	require.NoError(t, err)

	rec, err := o.EnrichAny(context.Background(), []string{"9783161484100", "0306406152"})
	require.NoError(t, err)

	assert.Equal(t, "Faust", *rec.Title)
	assert.Equal(t, "Mohr Siebeck", *rec.Publisher)
	assert.Equal(t, 2, primary.callCount())
}

func TestEnrichAny_SkipsInvalidISBNs(t *testing.T) {
	primary := &fakeProvider{id: provider.GoogleBooks, script: []fakeResponse{
		{result: partialResult(provider.GoogleBooks)},
	}}

	o, err := New(testConfig(primary, nil, nil))
	require.NoError(t, err)

	rec, err := o.EnrichAny(context.Background(), []string{"not-an-isbn", "9783161484100"})
	require.NoError(t, err)

	assert.Equal(t, merge.StatusFull, rec.Status)
	assert.Equal(t, 1, primary.callCount())
}

func TestEnrichAny_AllInvalid(t *testing.T) {
	o, err := New(testConfig(&fakeProvider{id: provider.GoogleBooks}, nil, nil))
	require.NoError(t, err)

	_, err = o.EnrichAny(context.Background(), []string{"junk", ""})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

// searchableProvider adds a scripted Search to fakeProvider.
type searchableProvider struct {
	fakeProvider
	results []provider.Result
	err     error
}

func (s *searchableProvider) Search(ctx context.Context, q provider.Query, limit int) ([]provider.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	if limit > len(s.results) {
		limit = len(s.results)
	}
	return s.results[:limit], nil
}

func TestSearch_DeduplicatesByTitle(t *testing.T) {
	primary := &searchableProvider{
		fakeProvider: fakeProvider{id: provider.GoogleBooks},
		results: []provider.Result{
			{Provider: provider.GoogleBooks, Title: provider.String("Faust")},
			{Provider: provider.GoogleBooks, Title: provider.String("Faust II")},
		},
	}
	fallback := &searchableProvider{
		fakeProvider: fakeProvider{id: provider.OpenLibrary},
		results: []provider.Result{
			{Provider: provider.OpenLibrary, Title: provider.String("Faust")},
			{Provider: provider.OpenLibrary, Title: provider.String("Urfaust")},
		},
	}

	o, err := New(testConfig(primary, fallback, nil))
	require.NoError(t, err)

	q, err := provider.QueryText("faust")
	require.NoError(t, err)

	results, err := o.Search(context.Background(), q, 10)
	require.NoError(t, err)

	titles := make([]string, len(results))
	for i, r := range results {
		titles[i] = *r.Title
	}
	assert.Equal(t, []string{"Faust", "Faust II", "Urfaust"}, titles)
}

func TestSearch_ProviderErrorSkipped(t *testing.T) {
	primary := &searchableProvider{
		fakeProvider: fakeProvider{id: provider.GoogleBooks},
		err:          provider.Transient(provider.GoogleBooks, "503", nil),
	}
	fallback := &searchableProvider{
		fakeProvider: fakeProvider{id: provider.OpenLibrary},
		results: []provider.Result{
			{Provider: provider.OpenLibrary, Title: provider.String("Faust")},
		},
	}

	o, err := New(testConfig(primary, fallback, nil))
	require.NoError(t, err)

	q, err := provider.QueryText("faust")
	require.NoError(t, err)

	results, err := o.Search(context.Background(), q, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Faust", *results[0].Title)
}

func TestSearch_LimitEnforced(t *testing.T) {
	primary := &searchableProvider{
		fakeProvider: fakeProvider{id: provider.GoogleBooks},
		results: []provider.Result{
			{Provider: provider.GoogleBooks, Title: provider.String("A")},
			{Provider: provider.GoogleBooks, Title: provider.String("B")},
			{Provider: provider.GoogleBooks, Title: provider.String("C")},
		},
	}

	o, err := New(testConfig(primary, nil, nil))
	require.NoError(t, err)

	q, err := provider.QueryText("anything")
	require.NoError(t, err)

	results, err := o.Search(context.Background(), q, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
