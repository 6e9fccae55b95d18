package cache

import (
	"strings"
	"testing"

	"github.com/bookgrid/book-enrichment/pkg/provider"
)

func TestKey_String(t *testing.T) {
	isbnQuery, err := provider.QueryISBN("978-3-16-148410-0")
	if err != nil {
		t.Fatalf("QueryISBN: %v", err)
	}
	textQuery, err := provider.QueryText("  The   Go Programming Language ")
	if err != nil {
		t.Fatalf("QueryText: %v", err)
	}

	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "isbn key",
			key:  KeyFor(isbnQuery, provider.GoogleBooks),
			want: "book:9783161484100:google_books",
		},
		{
			name: "isbn key other provider",
			key:  KeyFor(isbnQuery, provider.OpenLibrary),
			want: "book:9783161484100:open_library",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("Key.String() = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("text key is hashed and per-provider", func(t *testing.T) {
		k := KeyFor(textQuery, provider.NYTimes)
		s := k.String()
		if !strings.HasPrefix(s, "book:q:") {
			t.Errorf("text key = %q, want book:q: prefix", s)
		}
		if !strings.HasSuffix(s, ":ny_times") {
			t.Errorf("text key = %q, want provider suffix", s)
		}
	})

	t.Run("text key is case and whitespace insensitive", func(t *testing.T) {
		other, err := provider.QueryText("the go programming language")
		if err != nil {
			t.Fatalf("QueryText: %v", err)
		}
		a := KeyFor(textQuery, provider.GoogleBooks).String()
		b := KeyFor(other, provider.GoogleBooks).String()
		if a != b {
			t.Errorf("equivalent queries hash differently: %q vs %q", a, b)
		}
	})
}

func TestPrefix_CoversAllProviders(t *testing.T) {
	q, err := provider.QueryISBN("9783161484100")
	if err != nil {
		t.Fatalf("QueryISBN: %v", err)
	}

	prefix := Prefix(q.CacheToken())
	for _, p := range provider.Known {
		key := KeyFor(q, p).String()
		if !strings.HasPrefix(key, prefix) {
			t.Errorf("key %q not covered by prefix %q", key, prefix)
		}
	}

	otherKey := "book:9780306406157:google_books"
	if strings.HasPrefix(otherKey, prefix) {
		t.Errorf("prefix %q wrongly covers another ISBN's key", prefix)
	}
}
