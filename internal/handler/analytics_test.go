package handler

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/dukerupert/kinfolk/internal/analytics"
	"github.com/dukerupert/kinfolk/internal/model"
	"github.com/dukerupert/kinfolk/internal/store"
)

type failingBuilder struct{}

func (failingBuilder) Build(analytics.Period) (analytics.Report, error) {
	return analytics.Report{}, errors.New("disk on fire")
}

func newAnalyticsHandler(t *testing.T) *AnalyticsHandler {
	t.Helper()
	db := setupHandlerDB(t)
	members := store.NewFamilyMemberStore(db)
	tasks := store.NewTaskStore(db)
	events := store.NewEventStore(db)

	m, _ := members.Create("Петя", model.RoleChild, "#000000", "")
	for _, title := range []string{"посуда", "мусор"} {
		if _, err := tasks.Create(store.TaskParams{Title: title, AssigneeID: &m.ID, Points: 10}); err != nil {
			t.Fatalf("create task: %v", err)
		}
	}
	if _, err := events.Create(store.EventParams{Title: "кино", Date: time.Now(), Participants: []int64{m.ID}}); err != nil {
		t.Fatalf("create event: %v", err)
	}

	svc := analytics.NewService(members, tasks, events, analytics.LocaleRU, time.UTC)
	return NewAnalyticsHandler(svc, testLogger())
}

func TestAnalyticsGet(t *testing.T) {
	h := newAnalyticsHandler(t)

	rec := call(t, h.Get, "GET", "/api/analytics?period=quarter", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	rep := decodeBody[analytics.Report](t, rec)
	if rep.Period != analytics.PeriodQuarter || len(rep.Buckets) != 3 {
		t.Fatalf("period %s with %d buckets", rep.Period, len(rep.Buckets))
	}
	tasks, events := 0, 0
	for _, b := range rep.Buckets {
		tasks += b.Tasks
		events += b.Events
	}
	if tasks != 2 || events != 1 {
		t.Errorf("bucket totals = %d tasks, %d events, want 2, 1", tasks, events)
	}
	if len(rep.Members) != 1 || rep.Members[0].Total != 3 {
		t.Errorf("members = %+v", rep.Members)
	}
}

func TestAnalyticsMembers(t *testing.T) {
	h := newAnalyticsHandler(t)

	rec := call(t, h.Members, "GET", "/api/analytics/members?period=week", "")
	members := decodeBody[map[string][]analytics.MemberActivity](t, rec)["members"]
	if len(members) != 1 || members[0].TaskCount != 2 || members[0].EventCount != 1 {
		t.Errorf("members = %+v", members)
	}
}

func TestAnalyticsRejectsUnknownPeriod(t *testing.T) {
	h := newAnalyticsHandler(t)
	for _, q := range []string{"?period=decade", "?period=WEEK"} {
		rec := call(t, h.Get, "GET", "/api/analytics"+q, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%q: status = %d, want 400", q, rec.Code)
		}
	}
}

func TestAnalyticsDefaultPeriod(t *testing.T) {
	h := newAnalyticsHandler(t)
	rep := decodeBody[analytics.Report](t, call(t, h.Get, "GET", "/api/analytics", ""))
	if rep.Period != analytics.DefaultPeriod {
		t.Errorf("period = %q, want %q", rep.Period, analytics.DefaultPeriod)
	}
}

func TestAnalyticsBuildError(t *testing.T) {
	h := NewAnalyticsHandler(failingBuilder{}, testLogger())
	rec := call(t, h.Get, "GET", "/api/analytics?period=week", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if msg := errorMessage(t, rec); strings.Contains(msg, "disk") {
		t.Errorf("internal error leaked: %q", msg)
	}
}

func TestAnalyticsExport(t *testing.T) {
	h := newAnalyticsHandler(t)

	rec := call(t, h.Export, "GET", "/api/analytics/export?period=year", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "kinfolk-year-") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	f, err := excelize.OpenReader(rec.Body)
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Activity")
	if err != nil {
		t.Fatalf("read Activity sheet: %v", err)
	}
	if len(rows) != 13 {
		t.Errorf("Activity rows = %d, want header plus 12 months", len(rows))
	}
}
