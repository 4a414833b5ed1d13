package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/speaknote/internal/database"
	"github.com/iliyamo/speaknote/internal/model"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(database.Options{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createUser(t *testing.T, users *UserRepo, name string) int64 {
	t.Helper()
	res, err := users.Create(context.Background(), name, "pw123456", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return res.InsertedID
}

func createNote(t *testing.T, notes *NoteRepo, userID int64, text string) int64 {
	t.Helper()
	res, err := notes.Create(context.Background(), userID, text)
	if err != nil {
		t.Fatalf("create note: %v", err)
	}
	return res.InsertedID
}

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func TestUserRepo(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepo(db)
	ctx := context.Background()

	id := createUser(t, users, "alice")
	if _, err := users.Create(ctx, "alice", "other-pass", bcrypt.MinCost); !errors.Is(err, ErrUsernameExists) {
		t.Fatalf("duplicate username: got %v, want ErrUsernameExists", err)
	}

	u, err := users.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if u.ID != id || u.PasswordHash == "pw123456" {
		t.Fatalf("unexpected user %+v", u)
	}
	if _, err := users.GetByUsername(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing user: got %v, want ErrNotFound", err)
	}

	createUser(t, users, "bob")
	if _, err := users.Update(ctx, id, UserUpdate{Username: strp("bob")}, bcrypt.MinCost); !errors.Is(err, ErrUsernameExists) {
		t.Fatalf("rename to taken username: got %v", err)
	}
	if _, err := users.Update(ctx, id, UserUpdate{}, bcrypt.MinCost); !errors.Is(err, ErrInvalidUpdate) {
		t.Fatalf("empty update: got %v", err)
	}
	if _, err := users.Update(ctx, id, UserUpdate{Username: strp("alice2")}, bcrypt.MinCost); err != nil {
		t.Fatalf("rename: %v", err)
	}
	u, err = users.GetByID(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if u.Username != "alice2" {
		t.Fatalf("username = %q, want alice2", u.Username)
	}
}

func TestNoteLifecycle(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepo(db)
	notes := NewNoteRepo(db)
	practices := NewPracticeRepo(db)
	ctx := context.Background()

	alice := createUser(t, users, "alice")
	noteID := createNote(t, notes, alice, "你好")

	n, err := notes.GetOwned(ctx, noteID, alice)
	if err != nil {
		t.Fatalf("GetOwned: %v", err)
	}
	if n.Stage != model.StageDraft || n.TranslatedText != nil || n.Progress != 0 {
		t.Fatalf("fresh note = %+v", n)
	}

	if _, err := notes.Patch(ctx, noteID, alice, NotePatch{TranslatedText: strp("Hello")}); err != nil {
		t.Fatalf("patch translation: %v", err)
	}
	n, _ = notes.GetOwned(ctx, noteID, alice)
	if n.Stage != model.StageTranslated || *n.TranslatedText != "Hello" {
		t.Fatalf("after translation: %+v", n)
	}

	if _, err := notes.Patch(ctx, noteID, alice, NotePatch{AudioURL: strp("/uploads/tts/a.mp3")}); err != nil {
		t.Fatalf("patch audio: %v", err)
	}
	n, _ = notes.GetOwned(ctx, noteID, alice)
	if n.Stage != model.StageReady {
		t.Fatalf("stage = %s, want ready", n.Stage)
	}

	p := &model.Practice{UserID: alice, NoteID: noteID}
	if _, err := practices.Create(ctx, p); err != nil {
		t.Fatalf("create practice: %v", err)
	}
	if p.ID == 0 {
		t.Fatal("practice id not set")
	}

	list, err := notes.ListByUser(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Stage != model.StagePracticed || list[0].PracticeCount != 1 {
		t.Fatalf("list = %+v", list)
	}

	joined, err := practices.ListByUser(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if len(joined) != 1 || joined[0].NoteText == nil || *joined[0].NoteText != "你好" {
		t.Fatalf("practice list = %+v", joined)
	}
}

func TestNoteProgressNeverDecreases(t *testing.T) {
	db := openTestDB(t)
	notes := NewNoteRepo(db)
	ctx := context.Background()
	alice := createUser(t, NewUserRepo(db), "alice")
	noteID := createNote(t, notes, alice, "谢谢")

	for _, p := range []int{40, 10, 75, 0} {
		if _, err := notes.Patch(ctx, noteID, alice, NotePatch{Progress: intp(p)}); err != nil {
			t.Fatalf("patch progress %d: %v", p, err)
		}
	}
	n, err := notes.GetOwned(ctx, noteID, alice)
	if err != nil {
		t.Fatal(err)
	}
	if n.Progress != 75 {
		t.Fatalf("progress = %d, want 75", n.Progress)
	}
}

func TestNoteOwnershipIsEnforced(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepo(db)
	notes := NewNoteRepo(db)
	ctx := context.Background()

	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")
	noteID := createNote(t, notes, alice, "你好")

	if _, err := notes.GetOwned(ctx, noteID, bob); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign GetOwned: got %v", err)
	}
	if _, err := notes.Patch(ctx, noteID, bob, NotePatch{Text: strp("hijack")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign Patch: got %v", err)
	}
	if _, err := notes.Delete(ctx, noteID, bob); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign Delete: got %v", err)
	}
	if _, err := notes.Patch(ctx, noteID, alice, NotePatch{}); !errors.Is(err, ErrInvalidUpdate) {
		t.Fatalf("empty patch: got %v", err)
	}

	list, err := notes.ListByUser(ctx, bob)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatalf("bob sees %d notes", len(list))
	}
	n, err := notes.GetOwned(ctx, noteID, alice)
	if err != nil || n.Text != "你好" {
		t.Fatalf("alice note changed: %+v, %v", n, err)
	}
}

func TestDeleteNoteCascadesPracticesAndKeepsActivity(t *testing.T) {
	db := openTestDB(t)
	notes := NewNoteRepo(db)
	practices := NewPracticeRepo(db)
	activities := NewActivityRepo(db)
	ctx := context.Background()

	alice := createUser(t, NewUserRepo(db), "alice")
	noteID := createNote(t, notes, alice, "你好")
	if _, err := practices.Create(ctx, &model.Practice{UserID: alice, NoteID: noteID, AudioURL: strp("/uploads/practices/x.webm")}); err != nil {
		t.Fatal(err)
	}
	typeID, err := activities.TypeID(ctx, model.ActivityCreateNote)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := activities.Upsert(ctx, alice, typeID, "2026-10-19", &noteID); err != nil {
		t.Fatal(err)
	}

	if _, err := notes.Delete(ctx, noteID, alice); err != nil {
		t.Fatalf("delete: %v", err)
	}
	left, err := practices.ListByUser(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Fatalf("practices survived delete: %d", len(left))
	}
	days, err := activities.Heatmap(ctx, alice, "2026-10-01", "2026-10-31")
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 1 || days[0].Count != 1 {
		t.Fatalf("activity lost after delete: %+v", days)
	}
	ref, err := notes.AudioURLReferenced(ctx, "/uploads/practices/x.webm")
	if err != nil {
		t.Fatal(err)
	}
	if ref {
		t.Fatal("deleted practice audio still referenced")
	}
}

func TestAudioURLReferenced(t *testing.T) {
	db := openTestDB(t)
	notes := NewNoteRepo(db)
	ctx := context.Background()
	alice := createUser(t, NewUserRepo(db), "alice")
	noteID := createNote(t, notes, alice, "你好")
	if _, err := notes.Patch(ctx, noteID, alice, NotePatch{AudioURL: strp("/uploads/tts/a.mp3")}); err != nil {
		t.Fatal(err)
	}

	ref, err := notes.AudioURLReferenced(ctx, "/uploads/tts/a.mp3")
	if err != nil || !ref {
		t.Fatalf("expected referenced, got %v, %v", ref, err)
	}
	ref, err = notes.AudioURLReferenced(ctx, "/uploads/tts/b.mp3")
	if err != nil || ref {
		t.Fatalf("expected unreferenced, got %v, %v", ref, err)
	}
}

func TestActivityUpsertIsAtomic(t *testing.T) {
	db := openTestDB(t)
	activities := NewActivityRepo(db)
	ctx := context.Background()
	alice := createUser(t, NewUserRepo(db), "alice")
	typeID, err := activities.TypeID(ctx, model.ActivityReview)
	if err != nil {
		t.Fatal(err)
	}

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := activities.Upsert(ctx, alice, typeID, "2026-10-19", nil); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("upsert: %v", err)
	}

	var rows, count int
	if err := db.QueryRowxContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(count), 0) FROM activities WHERE user_id = ?", alice).Scan(&rows, &count); err != nil {
		t.Fatal(err)
	}
	if rows != 1 || count != workers {
		t.Fatalf("rows=%d count=%d, want 1 row with count %d", rows, count, workers)
	}
}

func TestActivityUpsertReturnsCount(t *testing.T) {
	db := openTestDB(t)
	activities := NewActivityRepo(db)
	ctx := context.Background()
	alice := createUser(t, NewUserRepo(db), "alice")
	typeID, _ := activities.TypeID(ctx, model.ActivityCreateNote)

	for want := 1; want <= 3; want++ {
		got, err := activities.Upsert(ctx, alice, typeID, "2026-10-19", nil)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("count = %d, want %d", got, want)
		}
	}
	if _, err := activities.TypeID(ctx, "listen"); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("unknown type: got %v", err)
	}
	if _, err := activities.Upsert(ctx, 999, typeID, "2026-10-19", nil); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("unknown user: got %v", err)
	}
}

func TestHeatmapSumsTypesAndOmitsEmptyDays(t *testing.T) {
	db := openTestDB(t)
	activities := NewActivityRepo(db)
	ctx := context.Background()
	users := NewUserRepo(db)
	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")

	create, _ := activities.TypeID(ctx, model.ActivityCreateNote)
	review, _ := activities.TypeID(ctx, model.ActivityReview)
	for _, u := range []struct {
		user   int64
		typeID int64
		date   string
	}{
		{alice, create, "2026-10-01"},
		{alice, create, "2026-10-01"},
		{alice, review, "2026-10-01"},
		{alice, review, "2026-10-05"},
		{alice, review, "2026-09-01"},
		{bob, review, "2026-10-05"},
	} {
		if _, err := activities.Upsert(ctx, u.user, u.typeID, u.date, nil); err != nil {
			t.Fatal(err)
		}
	}

	days, err := activities.Heatmap(ctx, alice, "2026-10-01", "2026-10-31")
	if err != nil {
		t.Fatal(err)
	}
	want := []model.HeatmapDay{{Date: "2026-10-01", Count: 3}, {Date: "2026-10-05", Count: 1}}
	if len(days) != len(want) {
		t.Fatalf("heatmap = %+v, want %+v", days, want)
	}
	for i := range want {
		if days[i] != want[i] {
			t.Fatalf("day %d = %+v, want %+v", i, days[i], want[i])
		}
	}

	empty, err := activities.Heatmap(ctx, alice, "2025-01-01", "2025-01-31")
	if err != nil {
		t.Fatal(err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", empty)
	}
}

func TestSummary(t *testing.T) {
	db := openTestDB(t)
	notes := NewNoteRepo(db)
	practices := NewPracticeRepo(db)
	activities := NewActivityRepo(db)
	ctx := context.Background()
	alice := createUser(t, NewUserRepo(db), "alice")

	n1 := createNote(t, notes, alice, "你好")
	createNote(t, notes, alice, "谢谢")
	for i := 0; i < 2; i++ {
		if _, err := practices.Create(ctx, &model.Practice{UserID: alice, NoteID: n1}); err != nil {
			t.Fatal(err)
		}
	}
	review, _ := activities.TypeID(ctx, model.ActivityReview)
	for _, d := range []string{"2026-10-01", "2026-10-01", "2026-10-02"} {
		if _, err := activities.Upsert(ctx, alice, review, d, nil); err != nil {
			t.Fatal(err)
		}
	}

	s, err := activities.Summary(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	want := model.SummaryStats{Notes: 2, Days: 2, Tags: 1}
	if s != want {
		t.Fatalf("summary = %+v, want %+v", s, want)
	}
}
