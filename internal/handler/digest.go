package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/kinfolk/internal/digest"
	"github.com/dukerupert/kinfolk/internal/kv"
)

// DigestRunner builds a digest on demand.
type DigestRunner interface {
	Run(ctx context.Context) (*digest.Digest, error)
}

type DigestHandler struct {
	store  kv.Store
	runner DigestRunner
	logger *slog.Logger
}

func NewDigestHandler(store kv.Store, runner DigestRunner, logger *slog.Logger) *DigestHandler {
	return &DigestHandler{store: store, runner: runner, logger: logger}
}

func (h *DigestHandler) Latest(w http.ResponseWriter, r *http.Request) {
	d, err := digest.Last(r.Context(), h.store)
	if errors.Is(err, digest.ErrNoDigest) {
		writeError(w, http.StatusNotFound, "no digest yet")
		return
	}
	if err != nil {
		serverError(w, r, h.logger, "failed to load digest", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Run builds a digest immediately instead of waiting for the schedule.
func (h *DigestHandler) Run(w http.ResponseWriter, r *http.Request) {
	d, err := h.runner.Run(r.Context())
	if err != nil {
		serverError(w, r, h.logger, "failed to build digest", err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}
