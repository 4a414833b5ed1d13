package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/speaknote/internal/storage"
)

type refSet map[string]bool

func (r refSet) AudioURLReferenced(_ context.Context, url string) (bool, error) {
	return r[url], nil
}

func TestSweepRemovesOldUnreferencedAudio(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocal(dir, "/uploads")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	old := now.Add(-96 * time.Hour)

	save := func(key string, mod time.Time) {
		if _, err := store.Save(ctx, key, strings.NewReader("audio"), "audio/mpeg"); err != nil {
			t.Fatal(err)
		}
		p := filepath.Join(dir, filepath.FromSlash(key))
		if err := os.Chtimes(p, mod, mod); err != nil {
			t.Fatal(err)
		}
	}
	save("tts/orphan.mp3", old)
	save("tts/used.mp3", old)
	save("tts/fresh.mp3", now.Add(-time.Hour))
	save("practices/old.webm", old)

	j := &Janitor{
		Store:     store,
		Refs:      refSet{"/uploads/tts/used.mp3": true},
		Retention: 72 * time.Hour,
		Now:       func() time.Time { return now },
	}
	n, err := j.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("removed %d objects, want 1", n)
	}

	for key, want := range map[string]bool{
		"tts/orphan.mp3":     false,
		"tts/used.mp3":       true,
		"tts/fresh.mp3":      true,
		"practices/old.webm": true,
	} {
		_, err := os.Stat(filepath.Join(dir, filepath.FromSlash(key)))
		if exists := err == nil; exists != want {
			t.Fatalf("%s exists=%v, want %v", key, exists, want)
		}
	}
}

func TestStartStop(t *testing.T) {
	store, err := storage.NewLocal(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatal(err)
	}
	j := &Janitor{Store: store, Refs: refSet{}, Retention: time.Hour}
	if err := j.Start(time.Hour); err != nil {
		t.Fatalf("Start: %v", err)
	}
	j.Stop()
}
