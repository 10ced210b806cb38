package analytics

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"
)

const (
	sheetActivity = "Activity"
	sheetMembers  = "Members"
	sheetSummary  = "Summary"
)

// WriteXLSX renders r as an Excel workbook with one sheet per section.
func WriteXLSX(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetActivity); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetMembers); err != nil {
		return fmt.Errorf("create members sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetSummary); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	activity := [][]any{{"Period", "Start", "End", "Tasks", "Events"}}
	for _, b := range r.Buckets {
		activity = append(activity, []any{
			b.Label,
			b.Start.Format("2006-01-02 15:04"),
			b.End.Format("2006-01-02 15:04"),
			b.Tasks,
			b.Events,
		})
	}
	if err := writeRows(f, sheetActivity, activity); err != nil {
		return err
	}

	members := [][]any{{"Member", "Role", "Tasks", "Events", "Total"}}
	for _, m := range r.Members {
		members = append(members, []any{m.Name, m.Role, m.TaskCount, m.EventCount, m.Total})
	}
	if err := writeRows(f, sheetMembers, members); err != nil {
		return err
	}

	summary := [][]any{
		{"Period", string(r.Period)},
		{"Generated", r.GeneratedAt.Format("2006-01-02 15:04")},
		{"Total tasks", r.Summary.TotalTasks},
		{"Completed tasks", r.Summary.CompletedTasks},
		{"Completion rate", r.Summary.CompletionRate},
		{"Total events", r.Summary.TotalEvents},
		{"Points awarded", r.Summary.PointsAwarded},
		{"Undated tasks", r.UndatedTasks},
		{"Undated events", r.UndatedEvents},
	}
	categories := make([]string, 0, len(r.Summary.TasksByCategory))
	for c := range r.Summary.TasksByCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		summary = append(summary, []any{"Category: " + c, r.Summary.TasksByCategory[c]})
	}
	if err := writeRows(f, sheetSummary, summary); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
