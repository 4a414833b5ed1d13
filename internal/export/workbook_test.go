package export

import (
	"testing"
	"time"

	"github.com/iliyamo/speaknote/internal/model"
)

func TestWorkbook(t *testing.T) {
	tr := "Hello"
	score := 88.5
	created := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	notes := []model.Note{{ID: 1, Text: "你好", TranslatedText: &tr, Stage: model.StageTranslated, Progress: 20, CreatedAt: created, UpdatedAt: created}}
	practices := []model.Practice{{ID: 5, NoteID: 1, Pronunciation: &score, NoteText: &notes[0].Text, CreatedAt: created}}

	f, err := Workbook(notes, practices, time.FixedZone("UTC+8", 8*3600))
	if err != nil {
		t.Fatalf("Workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != NotesSheet || sheets[1] != PracticesSheet {
		t.Fatalf("sheets = %v", sheets)
	}

	rows, err := f.GetRows(NotesSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0][0] != "ID" || rows[1][1] != "你好" || rows[1][2] != "Hello" || rows[1][4] != "translated" {
		t.Fatalf("notes rows = %q", rows)
	}
	if rows[1][7] != "2026-10-19 16:30:00" {
		t.Fatalf("created = %q, want local time", rows[1][7])
	}

	rows, err = f.GetRows(PracticesSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1][1] != "1" || rows[1][2] != "你好" || rows[1][5] != "88.5" {
		t.Fatalf("practice rows = %q", rows)
	}
}

func TestWorkbookEmpty(t *testing.T) {
	f, err := Workbook(nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(PracticesSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected header row only, got %d rows", len(rows))
	}
}
