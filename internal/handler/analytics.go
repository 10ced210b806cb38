package handler

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/kinfolk/internal/analytics"
)

// ReportBuilder produces activity reports.
type ReportBuilder interface {
	Build(p analytics.Period) (analytics.Report, error)
}

type AnalyticsHandler struct {
	reports ReportBuilder
	logger  *slog.Logger
}

func NewAnalyticsHandler(reports ReportBuilder, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{reports: reports, logger: logger}
}

// report parses ?period= and builds the report, writing any error response.
func (h *AnalyticsHandler) report(w http.ResponseWriter, r *http.Request) (analytics.Report, bool) {
	p, err := analytics.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return analytics.Report{}, false
	}
	rep, err := h.reports.Build(p)
	if err != nil {
		serverError(w, r, h.logger, "failed to build report", err)
		return analytics.Report{}, false
	}
	return rep, true
}

// Get serves the full report: buckets, member ranking and summary.
func (h *AnalyticsHandler) Get(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.report(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *AnalyticsHandler) Members(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.report(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": rep.Members})
}

// Export serves the report as an .xlsx download.
func (h *AnalyticsHandler) Export(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.report(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := analytics.WriteXLSX(&buf, rep); err != nil {
		serverError(w, r, h.logger, "failed to render export", err)
		return
	}

	filename := fmt.Sprintf("kinfolk-%s-%s.xlsx", rep.Period, rep.GeneratedAt.Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
