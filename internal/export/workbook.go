// Package export renders a user's notes and practices as an xlsx workbook.
package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/speaknote/internal/model"
)

const (
	NotesSheet     = "Notes"
	PracticesSheet = "Practices"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	noteHeader     = []interface{}{"ID", "Text", "Translation", "Audio URL", "Stage", "Progress", "Practices", "Created", "Updated"}
	practiceHeader = []interface{}{"ID", "Note ID", "Text", "Translation", "Audio URL", "Pronunciation", "Intonation", "Fluency", "Feedback", "Created"}
)

// Workbook builds the export. Timestamps are rendered in loc.
func Workbook(notes []model.Note, practices []model.Practice, loc *time.Location) (*excelize.File, error) {
	if loc == nil {
		loc = time.UTC
	}
	f := excelize.NewFile()
	// NewFile starts with "Sheet1"; rename it so no empty sheet is left.
	f.SetSheetName("Sheet1", NotesSheet)
	if _, err := f.NewSheet(PracticesSheet); err != nil {
		return nil, err
	}

	rows := make([][]interface{}, 0, len(notes)+1)
	rows = append(rows, noteHeader)
	for _, n := range notes {
		rows = append(rows, []interface{}{
			n.ID, n.Text, str(n.TranslatedText), str(n.AudioURL), string(n.Stage),
			n.Progress, n.PracticeCount, stamp(n.CreatedAt, loc), stamp(n.UpdatedAt, loc),
		})
	}
	if err := writeRows(f, NotesSheet, rows); err != nil {
		return nil, err
	}

	rows = make([][]interface{}, 0, len(practices)+1)
	rows = append(rows, practiceHeader)
	for _, p := range practices {
		rows = append(rows, []interface{}{
			p.ID, p.NoteID, str(p.NoteText), str(p.NoteTranslatedText), str(p.AudioURL),
			num(p.Pronunciation), num(p.Intonation), num(p.Fluency), str(p.Feedback), stamp(p.CreatedAt, loc),
		})
	}
	if err := writeRows(f, PracticesSheet, rows); err != nil {
		return nil, err
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	for _, sheet := range []string{NotesSheet, PracticesSheet} {
		if err := f.SetRowStyle(sheet, 1, 1, style); err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheet, "B", "D", 40); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func str(s *string) interface{} {
	if s == nil {
		return ""
	}
	return *s
}

func num(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func stamp(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format("2006-01-02 15:04:05")
}
