package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalSaveListDelete(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLocal(dir, "uploads/")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	url, err := l.Save(ctx, "tts/a.mp3", strings.NewReader("ID3"), "audio/mpeg")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if url != "/uploads/tts/a.mp3" {
		t.Fatalf("url = %q", url)
	}
	if _, err := l.Save(ctx, "practices/b.webm", strings.NewReader("webm"), "audio/webm"); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Save(ctx, "tts/a.mp3", strings.NewReader("again"), "audio/mpeg"); err == nil {
		t.Fatal("expected error when overwriting an existing key")
	}

	objs, err := l.List(ctx, PrefixTTS)
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != 1 || objs[0].Key != "tts/a.mp3" || objs[0].Size != 3 {
		t.Fatalf("List(tts/) = %+v", objs)
	}

	if err := l.Delete(ctx, "tts/a.mp3"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "tts", "a.mp3")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("file still present: %v", err)
	}
	if err := l.Delete(ctx, "tts/a.mp3"); err != nil {
		t.Fatalf("deleting a missing key should succeed: %v", err)
	}
}

func TestLocalRejectsEscapingKeys(t *testing.T) {
	l, err := NewLocal(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"", "/etc/passwd", "../x", "tts/../../x", `tts\x`} {
		if _, err := l.Save(context.Background(), key, strings.NewReader("x"), ""); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("Save(%q) error = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"recording.webm":        "recording.webm",
		"../../etc/passwd":      "passwd",
		`C:\Users\me\take 1.wav`: "take_1.wav",
		"":                      "audio",
		"...":                   "audio",
		"语音.mp3":                "mp3",
	}
	for in, want := range tests {
		if got := SanitizeName(in); got != want {
			t.Fatalf("SanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
	long := strings.Repeat("a", 200) + ".webm"
	if got := SanitizeName(long); len(got) != 80 || !strings.HasSuffix(got, ".webm") {
		t.Fatalf("long name sanitized to %q", got)
	}
}

func TestNewKeyIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		k := NewKey(PrefixPractice, "take.webm")
		if !strings.HasPrefix(k, PrefixPractice) || !strings.HasSuffix(k, "-take.webm") {
			t.Fatalf("unexpected key %q", k)
		}
		if seen[k] {
			t.Fatalf("duplicate key %q", k)
		}
		seen[k] = true
	}
}
