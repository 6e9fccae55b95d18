package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name string
		code int
		want Class
	}{
		{"not found", http.StatusNotFound, ClassNotFound},
		{"rate limited", http.StatusTooManyRequests, ClassTransient},
		{"server error", http.StatusInternalServerError, ClassTransient},
		{"bad gateway", http.StatusBadGateway, ClassTransient},
		{"unauthorized", http.StatusUnauthorized, ClassPermanent},
		{"forbidden", http.StatusForbidden, ClassPermanent},
		{"bad request", http.StatusBadRequest, ClassPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyStatus(tt.code); got != tt.want {
				t.Errorf("ClassifyStatus(%d) = %s, want %s", tt.code, got, tt.want)
			}
		})
	}
}

func TestClassOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"not found", NotFound(GoogleBooks), ClassNotFound},
		{"transient", Transient(OpenLibrary, "down", nil), ClassTransient},
		{"permanent", Permanent(NYTimes, "no key", nil), ClassPermanent},
		{"wrapped", fmt.Errorf("lookup: %w", NotFound(GoogleBooks)), ClassNotFound},
		{"plain error", errors.New("boom"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassOf(tt.err); got != tt.want {
				t.Errorf("ClassOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFetchError_Error(t *testing.T) {
	fe := &FetchError{
		Provider:   GoogleBooks,
		Class:      ClassTransient,
		StatusCode: 503,
		Message:    "503 Service Unavailable",
	}
	msg := fe.Error()
	for _, want := range []string{"google_books", "transient", "503"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestFetchError_Unwrap(t *testing.T) {
	inner := errors.New("connection reset")
	fe := Transient(OpenLibrary, "request failed", inner)

	if !errors.Is(fe, inner) {
		t.Error("Transient error should unwrap to the inner error")
	}
}

func TestClassifyNetErr_CancellationPassesThrough(t *testing.T) {
	err := classifyNetErr(GoogleBooks, fmt.Errorf("do: %w", context.Canceled))

	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled to pass through", err)
	}
	if ClassOf(err) != "" {
		t.Errorf("cancellation must not carry a failure class, got %q", ClassOf(err))
	}
}

func TestClassifyNetErr_OtherErrorsAreTransient(t *testing.T) {
	err := classifyNetErr(GoogleBooks, errors.New("connection refused"))

	if !IsTransient(err) {
		t.Errorf("network error should be transient, got %v", err)
	}
}
