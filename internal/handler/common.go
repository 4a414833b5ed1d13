package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/speaknote/internal/apierr"
	"github.com/iliyamo/speaknote/internal/middleware"
	"github.com/iliyamo/speaknote/internal/utils"
)

const (
	dbTimeout = 5 * time.Second

	MaxNoteRunes = 5000
	minPassword  = 6
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

// dbCtx bounds a handler's database work.
func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// currentUser returns the id stored by JWTAuth.
func currentUser(c echo.Context) (int64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, apierr.Unauthenticated("missing bearer token")
	}
	return id, nil
}

// pathID parses a positive integer route parameter. Anything else is
// reported as not found, like an id owned by another user.
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apierr.NotFound("not found or unauthorized")
	}
	return id, nil
}

// decodeObject reads a JSON object body keeping each value raw, so the
// caller can tell absent keys from nulls and check them against an
// allow-list.
func decodeObject(c echo.Context) (map[string]json.RawMessage, error) {
	var m map[string]json.RawMessage
	dec := json.NewDecoder(c.Request().Body)
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, apierr.Validation("invalid JSON body", nil)
	}
	if m == nil {
		// literal null
		return map[string]json.RawMessage{}, nil
	}
	return m, nil
}

func isNull(raw json.RawMessage) bool { return strings.TrimSpace(string(raw)) == "null" }

// rawString decodes a non-null JSON string.
func rawString(raw json.RawMessage) (string, bool) {
	if isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func validateUsername(u string) string {
	if !usernamePattern.MatchString(u) {
		return "must be 3-32 characters of letters, digits, '_', '.' or '-'"
	}
	return ""
}

func validatePassword(p string) string {
	if len(p) < minPassword || len(p) > utils.MaxPasswordBytes {
		return "must be 6-72 bytes"
	}
	return ""
}

func validateNoteText(t string) string {
	if strings.TrimSpace(t) == "" {
		return "must not be empty"
	}
	if utf8.RuneCountInString(t) > MaxNoteRunes {
		return "must be at most 5000 characters"
	}
	return ""
}
