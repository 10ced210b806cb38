package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/dukerupert/kinfolk/internal/analytics"
	"github.com/dukerupert/kinfolk/internal/digest"
	"github.com/dukerupert/kinfolk/internal/kv"
)

type stubRunner struct {
	d   *digest.Digest
	err error
}

func (s stubRunner) Run(context.Context) (*digest.Digest, error) {
	return s.d, s.err
}

func TestDigestLatest(t *testing.T) {
	store := kv.NewMemory()
	h := NewDigestHandler(store, stubRunner{}, testLogger())

	if rec := call(t, h.Latest, "GET", "/api/digest", ""); rec.Code != http.StatusNotFound {
		t.Errorf("empty store status = %d, want 404", rec.Code)
	}

	store.Set(context.Background(), digest.LastKey, `{"generated_at":"2026-03-08T18:00:00Z","report":{"period":"week"}}`)
	rec := call(t, h.Latest, "GET", "/api/digest", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[digest.Digest](t, rec)
	if got.Report.Period != analytics.PeriodWeek {
		t.Errorf("period = %q", got.Report.Period)
	}
}

func TestDigestRun(t *testing.T) {
	d := &digest.Digest{GeneratedAt: time.Date(2026, 3, 8, 18, 0, 0, 0, time.UTC)}
	h := NewDigestHandler(kv.NewMemory(), stubRunner{d: d}, testLogger())
	if rec := call(t, h.Run, "POST", "/api/digest/run", ""); rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}

	h = NewDigestHandler(kv.NewMemory(), stubRunner{err: errors.New("boom")}, testLogger())
	if rec := call(t, h.Run, "POST", "/api/digest/run", ""); rec.Code != http.StatusInternalServerError {
		t.Errorf("failing run status = %d, want 500", rec.Code)
	}
}
