package handler

import (
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/kinfolk/internal/model"
	"github.com/dukerupert/kinfolk/internal/store"
	"github.com/dukerupert/kinfolk/internal/websocket"
)

var hexColorRegexp = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

const (
	defaultColor  = "#3B82F6"
	defaultAvatar = "🙂"
	maxNameLength = 64
)

type FamilyMemberHandler struct {
	notifier
	store  *store.FamilyMemberStore
	logger *slog.Logger
}

func NewFamilyMemberHandler(s *store.FamilyMemberStore, hub Broadcaster, logger *slog.Logger) *FamilyMemberHandler {
	return &FamilyMemberHandler{notifier: notifier{hub: hub}, store: s, logger: logger}
}

type memberRequest struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	Color       string `json:"color"`
	AvatarEmoji string `json:"avatar_emoji"`
}

// normalize trims and validates req, filling blanks from fallback.
func (req *memberRequest) normalize(fallback *model.FamilyMember) string {
	req.Name = strings.TrimSpace(req.Name)
	req.Role = strings.TrimSpace(req.Role)
	if req.Name == "" {
		return "name is required"
	}
	if utf8.RuneCountInString(req.Name) > maxNameLength {
		return "name is too long"
	}

	if fallback != nil {
		if req.Role == "" {
			req.Role = fallback.Role
		}
		if req.Color == "" {
			req.Color = fallback.Color
		}
		if req.AvatarEmoji == "" {
			req.AvatarEmoji = fallback.AvatarEmoji
		}
	}
	if req.Role == "" {
		req.Role = model.RoleChild
	}
	if req.Color == "" {
		req.Color = defaultColor
	}
	if !hexColorRegexp.MatchString(req.Color) {
		return "color must be a hex color (e.g. #FF0000)"
	}
	if req.AvatarEmoji == "" {
		req.AvatarEmoji = defaultAvatar
	}
	return ""
}

func (h *FamilyMemberHandler) List(w http.ResponseWriter, r *http.Request) {
	includeArchived, err := queryBool(r, "include_archived")
	if err != nil {
		writeError(w, http.StatusBadRequest, "include_archived must be a boolean")
		return
	}

	members, err := h.store.List(includeArchived != nil && *includeArchived)
	if err != nil {
		serverError(w, r, h.logger, "failed to list family members", err)
		return
	}
	if members == nil {
		members = []model.FamilyMember{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

func (h *FamilyMemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	member, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, member)
}

// load fetches the member named by the {id} path value, writing 400/404/500 itself.
func (h *FamilyMemberHandler) load(w http.ResponseWriter, r *http.Request) (*model.FamilyMember, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}
	member, err := h.store.GetByID(id)
	if err != nil {
		serverError(w, r, h.logger, "failed to get family member", err)
		return nil, false
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "family member not found")
		return nil, false
	}
	return member, true
}

func (h *FamilyMemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := req.normalize(nil); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if !h.nameAvailable(w, r, req.Name, 0) {
		return
	}

	member, err := h.store.Create(req.Name, req.Role, req.Color, req.AvatarEmoji)
	if err != nil {
		serverError(w, r, h.logger, "failed to create family member", err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityMember, websocket.ActionCreated, member.ID, nil))
	writeJSON(w, http.StatusCreated, member)
}

func (h *FamilyMemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.load(w, r)
	if !ok {
		return
	}

	var req memberRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := req.normalize(existing); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if !h.nameAvailable(w, r, req.Name, existing.ID) {
		return
	}

	member, err := h.store.Update(existing.ID, req.Name, req.Role, req.Color, req.AvatarEmoji)
	if err != nil {
		serverError(w, r, h.logger, "failed to update family member", err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityMember, websocket.ActionUpdated, member.ID, nil))
	writeJSON(w, http.StatusOK, member)
}

func (h *FamilyMemberHandler) nameAvailable(w http.ResponseWriter, r *http.Request, name string, excludeID int64) bool {
	exists, err := h.store.NameExists(name, excludeID)
	if err != nil {
		serverError(w, r, h.logger, "failed to check name", err)
		return false
	}
	if exists {
		writeError(w, http.StatusConflict, "a family member with that name already exists")
		return false
	}
	return true
}

// Archive hides a member. Members are never deleted so their task and
// event history stays attributable.
func (h *FamilyMemberHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, true)
}

func (h *FamilyMemberHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.setArchived(w, r, false)
}

func (h *FamilyMemberHandler) setArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	existing, ok := h.load(w, r)
	if !ok {
		return
	}

	if err := h.store.SetArchived(existing.ID, archived); err != nil {
		serverError(w, r, h.logger, "failed to archive family member", err)
		return
	}

	action := websocket.ActionArchived
	if !archived {
		action = websocket.ActionUpdated
	}
	h.broadcast(websocket.NewMessage(websocket.EntityMember, action, existing.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *FamilyMemberHandler) UpdateSortOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids are required")
		return
	}

	if err := h.store.UpdateSortOrder(req.IDs); err != nil {
		serverError(w, r, h.logger, "failed to update sort order", err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityMember, "reordered", 0, nil))
	w.WriteHeader(http.StatusNoContent)
}

type pinRequest struct {
	PIN string `json:"pin"`
}

func (h *FamilyMemberHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.load(w, r)
	if !ok {
		return
	}

	var req pinRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.PIN) != 4 || !isDigits(req.PIN) {
		writeError(w, http.StatusBadRequest, "PIN must be exactly 4 digits")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		serverError(w, r, h.logger, "failed to hash PIN", err)
		return
	}
	if err := h.store.SetPIN(existing.ID, string(hash)); err != nil {
		serverError(w, r, h.logger, "failed to set PIN", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "pin set"})
}

func (h *FamilyMemberHandler) ClearPIN(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := h.store.ClearPIN(existing.ID); err != nil {
		serverError(w, r, h.logger, "failed to clear PIN", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pin cleared"})
}

func (h *FamilyMemberHandler) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.load(w, r)
	if !ok {
		return
	}

	var req pinRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	hash, err := h.store.GetPINHash(existing.ID)
	if err != nil {
		serverError(w, r, h.logger, "failed to get PIN", err)
		return
	}
	if hash == "" {
		writeError(w, http.StatusBadRequest, "no PIN set for this member")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.PIN)); err != nil {
		writeError(w, http.StatusUnauthorized, "incorrect PIN")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

// Leaderboard lists active members by points. Equal scores keep the
// family's sort order.
func (h *FamilyMemberHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	members, err := h.store.Leaderboard()
	if err != nil {
		serverError(w, r, h.logger, "failed to load leaderboard", err)
		return
	}

	type entry struct {
		Rank int `json:"rank"`
		model.FamilyMember
	}
	board := make([]entry, len(members))
	for i, m := range members {
		rank := i + 1
		if i > 0 && m.Points == members[i-1].Points {
			rank = board[i-1].Rank
		}
		board[i] = entry{Rank: rank, FamilyMember: m}
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": board})
}
