package export

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
	"github.com/zikenn26/CampusHub/internal/domain/timetable"
)

const timetableSheet = "Timetable"

// TimetableXLSX renders entries as a spreadsheet, one row per class,
// sorted by date then start time. Returns the file content and a
// suggested filename.
func TimetableXLSX(entries []timetable.Entry, label string) (*bytes.Buffer, string, error) {
	if len(entries) == 0 {
		return nil, "", ErrNoEntries
	}

	sorted := make([]timetable.Entry, len(entries))
	copy(sorted, entries)

	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}

		return sorted[i].StartTime < sorted[j].StartTime
	})

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(timetableSheet)

	if err != nil {
		return nil, "", fmt.Errorf("export: new sheet: %w", err)
	}

	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(timetableSheet, "A", "A", 12)
	f.SetColWidth(timetableSheet, "B", "C", 8)
	f.SetColWidth(timetableSheet, "D", "D", 12)
	f.SetColWidth(timetableSheet, "E", "E", 32)
	f.SetColWidth(timetableSheet, "F", "F", 20)
	f.SetColWidth(timetableSheet, "G", "G", 10)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	if err != nil {
		return nil, "", fmt.Errorf("export: style: %w", err)
	}

	f.SetCellValue(timetableSheet, "A1", fmt.Sprintf("Timetable - %s", label))
	f.MergeCell(timetableSheet, "A1", "G1")
	f.SetCellStyle(timetableSheet, "A1", "A1", headerStyle)

	headers := []string{"Date", "Start", "End", "Course", "Title", "Venue", "Semester"}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		f.SetCellValue(timetableSheet, cell, h)
		f.SetCellStyle(timetableSheet, cell, cell, headerStyle)
	}

	row := 3

	for _, e := range sorted {
		values := []interface{}{
			e.Date.Format("2006-01-02"),
			e.StartTime,
			e.EndTime,
			e.CourseCode,
			e.CourseName,
			e.Venue,
			e.Semester,
		}

		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			f.SetCellValue(timetableSheet, cell, v)
		}

		row++
	}

	buf := new(bytes.Buffer)

	if err := f.Write(buf); err != nil {
		return nil, "", fmt.Errorf("export: write xlsx: %w", err)
	}

	return buf, fmt.Sprintf("timetable_%s.xlsx", label), nil
}
