package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/dukerupert/kinfolk/internal/kv"
	"github.com/dukerupert/kinfolk/internal/websocket"
)

var prefKeyRegexp = regexp.MustCompile(`^[a-z0-9_.:-]{1,64}$`)

const maxPrefValueBytes = 16 << 10

// PreferenceHandler exposes the key/value store for client preferences,
// feature flags and counters.
type PreferenceHandler struct {
	notifier
	store  kv.Store
	logger *slog.Logger
}

func NewPreferenceHandler(store kv.Store, hub Broadcaster, logger *slog.Logger) *PreferenceHandler {
	return &PreferenceHandler{notifier: notifier{hub: hub}, store: store, logger: logger}
}

func (h *PreferenceHandler) key(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := strings.ToLower(r.PathValue("key"))
	if !prefKeyRegexp.MatchString(key) {
		writeError(w, http.StatusBadRequest, "key must match [a-z0-9_.:-]{1,64}")
		return "", false
	}
	// Digests are written by the scheduler only.
	if strings.HasPrefix(key, "digest:") {
		writeError(w, http.StatusForbidden, "reserved key")
		return "", false
	}
	return key, true
}

func (h *PreferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	key, ok := h.key(w, r)
	if !ok {
		return
	}
	value, found, err := h.store.Get(r.Context(), key)
	if err != nil {
		serverError(w, r, h.logger, "failed to read preference", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "preference not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

func (h *PreferenceHandler) Put(w http.ResponseWriter, r *http.Request) {
	key, ok := h.key(w, r)
	if !ok {
		return
	}
	var req struct {
		Value *string `json:"value"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Value == nil {
		writeError(w, http.StatusBadRequest, "value is required")
		return
	}
	if len(*req.Value) > maxPrefValueBytes {
		writeError(w, http.StatusBadRequest, "value is too large")
		return
	}

	if err := h.store.Set(r.Context(), key, *req.Value); err != nil {
		serverError(w, r, h.logger, "failed to save preference", err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityPref, websocket.ActionUpdated, 0, map[string]any{"key": key}))
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": *req.Value})
}

// Incr adds delta (default 1) to a counter such as a vote tally.
func (h *PreferenceHandler) Incr(w http.ResponseWriter, r *http.Request) {
	key, ok := h.key(w, r)
	if !ok {
		return
	}
	req := struct {
		Delta int64 `json:"delta"`
	}{Delta: 1}
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}

	n, err := kv.Incr(r.Context(), h.store, key, req.Delta)
	if errors.Is(err, kv.ErrNotCounter) {
		writeError(w, http.StatusConflict, "value is not a counter")
		return
	}
	if err != nil {
		serverError(w, r, h.logger, "failed to increment counter", err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityPref, websocket.ActionUpdated, 0, map[string]any{"key": key}))
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "value": n})
}
