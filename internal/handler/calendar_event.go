package handler

import (
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/dukerupert/kinfolk/internal/model"
	"github.com/dukerupert/kinfolk/internal/recurrence"
	"github.com/dukerupert/kinfolk/internal/store"
	"github.com/dukerupert/kinfolk/internal/websocket"
)

// maxExpandRange bounds GET /api/events?expand=true.
const maxExpandRange = 366 * 24 * time.Hour

type CalendarEventHandler struct {
	notifier
	events  *store.EventStore
	members *store.FamilyMemberStore
	logger  *slog.Logger
	loc     *time.Location
}

func NewCalendarEventHandler(events *store.EventStore, members *store.FamilyMemberStore, hub Broadcaster, loc *time.Location, logger *slog.Logger) *CalendarEventHandler {
	if loc == nil {
		loc = time.Local
	}
	return &CalendarEventHandler{
		notifier: notifier{hub: hub},
		events:   events,
		members:  members,
		logger:   logger,
		loc:      loc,
	}
}

type eventRequest struct {
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Category       string  `json:"category"`
	Date           string  `json:"date"`
	EndDate        string  `json:"end_date"`
	AllDay         bool    `json:"all_day"`
	Location       string  `json:"location"`
	RecurrenceRule string  `json:"recurrence_rule"`
	Participants   []int64 `json:"participants"`
}

func (h *CalendarEventHandler) params(req eventRequest) (store.EventParams, string, error) {
	p := store.EventParams{
		Title:          strings.TrimSpace(req.Title),
		Description:    strings.TrimSpace(req.Description),
		Category:       strings.TrimSpace(req.Category),
		AllDay:         req.AllDay,
		Location:       strings.TrimSpace(req.Location),
		RecurrenceRule: strings.TrimSpace(req.RecurrenceRule),
		Participants:   req.Participants,
	}
	if p.Title == "" {
		return p, "title is required", nil
	}
	if req.Date == "" {
		return p, "date is required", nil
	}
	date, err := parseTime(req.Date, h.loc)
	if err != nil {
		return p, "date must be RFC 3339 or YYYY-MM-DD", nil
	}
	p.Date = date

	if req.EndDate != "" {
		end, err := parseTime(req.EndDate, h.loc)
		if err != nil {
			return p, "end_date must be RFC 3339 or YYYY-MM-DD", nil
		}
		if end.Before(date) {
			return p, "end_date must not be before date", nil
		}
		p.EndDate = &end
	}

	if p.RecurrenceRule != "" {
		rule, err := recurrence.Parse(p.RecurrenceRule)
		if err != nil {
			return p, "invalid recurrence_rule: " + err.Error(), nil
		}
		p.RecurrenceRule = rule.String()
	}

	for _, id := range p.Participants {
		m, err := h.members.GetByID(id)
		if err != nil {
			return p, "", err
		}
		if m == nil {
			return p, "participant not found", nil
		}
	}
	return p, "", nil
}

// List returns all events, or those in [start, end) when both are given.
// With expand=true recurring events are expanded into occurrences.
func (h *CalendarEventHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	startStr, endStr := q.Get("start"), q.Get("end")
	expand, err := queryBool(r, "expand")
	if err != nil {
		writeError(w, http.StatusBadRequest, "expand must be a boolean")
		return
	}

	if startStr == "" && endStr == "" {
		if expand != nil && *expand {
			writeError(w, http.StatusBadRequest, "expand requires start and end")
			return
		}
		events, err := h.events.ListAll()
		if err != nil {
			serverError(w, r, h.logger, "failed to list events", err)
			return
		}
		if events == nil {
			events = []model.CalendarEvent{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": events})
		return
	}

	start, err1 := parseTime(startStr, h.loc)
	end, err2 := parseTime(endStr, h.loc)
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "start and end must be RFC 3339 or YYYY-MM-DD")
		return
	}
	if !end.After(start) {
		writeError(w, http.StatusBadRequest, "end must be after start")
		return
	}

	events, err := h.events.ListByDateRange(start, end)
	if err != nil {
		serverError(w, r, h.logger, "failed to list events", err)
		return
	}
	for i := range events {
		events[i] = events[i].In(h.loc)
	}

	if expand == nil || !*expand {
		// Recurring events come back whenever they started before end;
		// keep only those with an occurrence in range.
		filtered := []model.CalendarEvent{}
		for _, e := range events {
			occ, _ := recurrence.Occurrences(e, start, end)
			if len(occ) > 0 {
				filtered = append(filtered, e)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": filtered})
		return
	}

	if end.Sub(start) > maxExpandRange {
		writeError(w, http.StatusBadRequest, "expanded range must not exceed one year")
		return
	}
	occurrences := []model.EventOccurrence{}
	for _, e := range events {
		occ, err := recurrence.Occurrences(e, start, end)
		if err != nil {
			h.logger.Warn("invalid stored recurrence rule", "event_id", e.ID, "rule", e.RecurrenceRule, "error", err)
		}
		occurrences = append(occurrences, occ...)
	}
	sort.SliceStable(occurrences, func(i, j int) bool {
		return occurrences[i].Start.Before(occurrences[j].Start)
	})
	writeJSON(w, http.StatusOK, map[string]any{"occurrences": occurrences})
}

func (h *CalendarEventHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *CalendarEventHandler) load(w http.ResponseWriter, r *http.Request) (*model.CalendarEvent, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}
	event, err := h.events.GetByID(id)
	if err != nil {
		serverError(w, r, h.logger, "failed to get event", err)
		return nil, false
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return nil, false
	}
	return event, true
}

func (h *CalendarEventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, msg, err := h.params(req)
	if err != nil {
		serverError(w, r, h.logger, "failed to validate event", err)
		return
	}
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	event, err := h.events.Create(p)
	if err != nil {
		serverError(w, r, h.logger, "failed to create event", err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityEvent, websocket.ActionCreated, event.ID, nil))
	writeJSON(w, http.StatusCreated, event)
}

func (h *CalendarEventHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.load(w, r)
	if !ok {
		return
	}

	var req eventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, msg, err := h.params(req)
	if err != nil {
		serverError(w, r, h.logger, "failed to validate event", err)
		return
	}
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	event, err := h.events.Update(existing.ID, p)
	if err != nil {
		serverError(w, r, h.logger, "failed to update event", err)
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityEvent, websocket.ActionUpdated, event.ID, nil))
	writeJSON(w, http.StatusOK, event)
}

func (h *CalendarEventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := h.events.Delete(existing.ID); err != nil {
		serverError(w, r, h.logger, "failed to delete event", err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityEvent, websocket.ActionDeleted, existing.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}
