// Package storage keeps uploaded recordings and synthesized audio. The API
// only ever hands out URLs; the database stores those URLs verbatim.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Key prefixes used by the service.
const (
	PrefixPractice = "practices/"
	PrefixTTS      = "tts/"
)

// ErrInvalidKey is returned for keys that would escape the store root.
var ErrInvalidKey = errors.New("invalid storage key")

// Object describes a stored file.
type Object struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Store is implemented by the local directory store and the GCS bucket store.
type Store interface {
	// Save writes r under key and returns the public URL of the object.
	Save(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	// List returns objects whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]Object, error)
	// URL is the public URL Save returns for key.
	URL(key string) string
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeName reduces a client-supplied file name to a safe base name.
func SanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	name = unsafeName.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "audio"
	}
	if len(name) > 80 {
		ext := path.Ext(name)
		if len(ext) > 10 {
			ext = ""
		}
		name = name[:80-len(ext)] + ext
	}
	return name
}

// NewKey builds prefix + "<unix-millis>-<uuid>-<sanitized name>". The uuid
// makes keys unique even for same-millisecond uploads of the same name.
func NewKey(prefix, name string) string {
	return fmt.Sprintf("%s%d-%s-%s", prefix, time.Now().UnixMilli(), uuid.NewString(), SanitizeName(name))
}

func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") || strings.Contains(key, `\`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
