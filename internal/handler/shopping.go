package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/kinfolk/internal/grocery"
	"github.com/dukerupert/kinfolk/internal/model"
	"github.com/dukerupert/kinfolk/internal/store"
	"github.com/dukerupert/kinfolk/internal/websocket"
)

type ShoppingHandler struct {
	notifier
	store  *store.ShoppingStore
	logger *slog.Logger
}

func NewShoppingHandler(s *store.ShoppingStore, hub Broadcaster, logger *slog.Logger) *ShoppingHandler {
	return &ShoppingHandler{notifier: notifier{hub: hub}, store: s, logger: logger}
}

func (h *ShoppingHandler) ListLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.store.ListLists()
	if err != nil {
		serverError(w, r, h.logger, "failed to list shopping lists", err)
		return
	}
	if lists == nil {
		lists = []model.ShoppingList{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"lists": lists})
}

func (h *ShoppingHandler) CreateList(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	list, err := h.store.CreateList(req.Name)
	if err != nil {
		serverError(w, r, h.logger, "failed to create shopping list", err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityList, websocket.ActionCreated, list.ID, nil))
	writeJSON(w, http.StatusCreated, list)
}

func (h *ShoppingHandler) DeleteList(w http.ResponseWriter, r *http.Request) {
	list, ok := h.loadList(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteList(list.ID); err != nil {
		serverError(w, r, h.logger, "failed to delete shopping list", err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityList, websocket.ActionDeleted, list.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}

// loadList resolves the {list_id} path value.
func (h *ShoppingHandler) loadList(w http.ResponseWriter, r *http.Request) (*model.ShoppingList, bool) {
	id, err := strconv.ParseInt(r.PathValue("list_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid list id")
		return nil, false
	}
	list, err := h.store.GetList(id)
	if err != nil {
		serverError(w, r, h.logger, "failed to get shopping list", err)
		return nil, false
	}
	if list == nil {
		writeError(w, http.StatusNotFound, "shopping list not found")
		return nil, false
	}
	return list, true
}

// loadItem resolves {list_id}/{id} and checks the item belongs to the list.
func (h *ShoppingHandler) loadItem(w http.ResponseWriter, r *http.Request) (*model.ShoppingItem, bool) {
	list, ok := h.loadList(w, r)
	if !ok {
		return nil, false
	}
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}
	item, err := h.store.GetItem(id)
	if err != nil {
		serverError(w, r, h.logger, "failed to get item", err)
		return nil, false
	}
	if item == nil || item.ListID != list.ID {
		writeError(w, http.StatusNotFound, "item not found")
		return nil, false
	}
	return item, true
}

type itemRequest struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Unit     string `json:"unit"`
	Notes    string `json:"notes"`
	Category string `json:"category"`
	AddedBy  *int64 `json:"added_by"`
}

func (req itemRequest) params() (store.ItemParams, string) {
	p := store.ItemParams{
		Name:     strings.TrimSpace(req.Name),
		Quantity: strings.TrimSpace(req.Quantity),
		Unit:     strings.TrimSpace(req.Unit),
		Notes:    strings.TrimSpace(req.Notes),
		Category: strings.TrimSpace(req.Category),
	}
	if p.Name == "" {
		return p, "name is required"
	}
	return p, ""
}

func (h *ShoppingHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	list, ok := h.loadList(w, r)
	if !ok {
		return
	}
	items, err := h.store.ListItems(list.ID)
	if err != nil {
		serverError(w, r, h.logger, "failed to list items", err)
		return
	}
	if items == nil {
		items = []model.ShoppingItem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *ShoppingHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	list, ok := h.loadList(w, r)
	if !ok {
		return
	}

	var req itemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, msg := req.params()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if p.Category == "" {
		p.Category = grocery.Categorize(p.Name)
	}

	item, err := h.store.CreateItem(list.ID, p, req.AddedBy)
	if err != nil {
		serverError(w, r, h.logger, "failed to create item", err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityItem, websocket.ActionCreated, item.ID,
		map[string]any{"list_id": list.ID}))
	writeJSON(w, http.StatusCreated, item)
}

func (h *ShoppingHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.loadItem(w, r)
	if !ok {
		return
	}

	var req itemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, msg := req.params()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := h.store.UpdateItem(existing.ID, p)
	if err != nil {
		serverError(w, r, h.logger, "failed to update item", err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityItem, websocket.ActionUpdated, item.ID,
		map[string]any{"list_id": item.ListID}))
	writeJSON(w, http.StatusOK, item)
}

func (h *ShoppingHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.loadItem(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteItem(existing.ID); err != nil {
		serverError(w, r, h.logger, "failed to delete item", err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityItem, websocket.ActionDeleted, existing.ID,
		map[string]any{"list_id": existing.ListID}))
	w.WriteHeader(http.StatusNoContent)
}

func (h *ShoppingHandler) ToggleChecked(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.loadItem(w, r)
	if !ok {
		return
	}

	var req struct {
		CheckedBy *int64 `json:"checked_by"`
	}
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.store.ToggleChecked(existing.ID, req.CheckedBy)
	if err != nil {
		serverError(w, r, h.logger, "failed to toggle item", err)
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityItem, websocket.ActionUpdated, item.ID,
		map[string]any{"list_id": item.ListID, "checked": item.Checked}))
	writeJSON(w, http.StatusOK, item)
}

func (h *ShoppingHandler) ClearChecked(w http.ResponseWriter, r *http.Request) {
	list, ok := h.loadList(w, r)
	if !ok {
		return
	}
	n, err := h.store.ClearChecked(list.ID)
	if err != nil {
		serverError(w, r, h.logger, "failed to clear checked items", err)
		return
	}

	if n > 0 {
		h.broadcast(websocket.NewMessage(websocket.EntityItem, "cleared", 0,
			map[string]any{"list_id": list.ID, "count": n}))
	}
	writeJSON(w, http.StatusOK, map[string]int64{"cleared": n})
}
