package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/speaknote/internal/apierr"
	"github.com/iliyamo/speaknote/internal/config"
	"github.com/iliyamo/speaknote/internal/utils"
)

const secret = "middleware-secret"

func runJWT(t *testing.T, header string) (int64, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	c := e.NewContext(req, httptest.NewRecorder())
	var seen int64
	err := JWTAuth(secret)(func(c echo.Context) error {
		seen, _ = UserID(c)
		return nil
	})(c)
	return seen, err
}

func TestJWTAuth(t *testing.T) {
	ok, err := utils.IssueToken(secret, 7, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	expired, err := utils.IssueToken(secret, 7, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	id, err := runJWT(t, "Bearer "+ok.Token)
	if err != nil || id != 7 {
		t.Fatalf("valid token: id=%d err=%v", id, err)
	}

	tests := []struct {
		name   string
		header string
		kind   string
	}{
		{"missing", "", apierr.KindUnauthenticated},
		{"wrong scheme", "Token " + ok.Token, apierr.KindUnauthenticated},
		{"expired", "Bearer " + expired.Token, apierr.KindTokenExpired},
		{"garbage", "Bearer abc", apierr.KindInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runJWT(t, tt.header)
			ae, ok := apierr.As(err)
			if !ok {
				t.Fatalf("expected *apierr.Error, got %v", err)
			}
			if ae.Status != http.StatusUnauthorized || ae.Kind != tt.kind {
				t.Fatalf("got %d %s, want 401 %s", ae.Status, ae.Kind, tt.kind)
			}
		})
	}
}

func TestUserIDHelpers(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if _, ok := UserID(c); ok {
		t.Fatal("unauthenticated context should have no user")
	}
	if userKey(c) != "anon" {
		t.Fatalf("userKey = %q", userKey(c))
	}
	SetUserID(c, 12)
	if id, ok := UserID(c); !ok || id != 12 {
		t.Fatalf("UserID = %d, %v", id, ok)
	}
	if userKey(c) != "12" {
		t.Fatalf("userKey = %q", userKey(c))
	}
}

func TestEntryKeyRollsOverWithDay(t *testing.T) {
	day := "2026-10-19"
	cache := NewResponseCache(config.CacheConfig{Prefix: "sn:cache"}, nil)
	cache.Day = func() string { return day }

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/activities?days=7", nil), httptest.NewRecorder())
	c.SetPath("/api/v1/activities")

	before := cache.entryKey(c, "7", 3)
	if again := cache.entryKey(c, "7", 3); again != before {
		t.Fatalf("key not stable within a day: %q vs %q", before, again)
	}
	if !strings.HasPrefix(before, "sn:cache:u:7:g:3:") {
		t.Fatalf("key = %q", before)
	}
	day = "2026-10-20"
	if after := cache.entryKey(c, "7", 3); after == before {
		t.Fatal("key must change when the day changes")
	}
}

func TestMiddlewaresPassThroughWithoutRedis(t *testing.T) {
	cache := NewResponseCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil)
	if err := cache.InvalidateUser(context.Background(), 1); err != nil {
		t.Fatalf("InvalidateUser without redis: %v", err)
	}
	limiter := NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil, nil)

	e := echo.New()
	calls := 0
	e.GET("/x", func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "hi")
	}, limiter, cache.Middleware())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d", rec.Code)
		}
		if rec.Header().Get("X-Cache") != "" {
			t.Fatal("disabled cache must not set X-Cache")
		}
	}
	if calls != 3 {
		t.Fatalf("handler calls = %d, want 3", calls)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	if err != nil {
		t.Fatal(err)
	}
	status, gotHdr, body, ok := decodePayload(bs)
	if !ok || status != http.StatusOK || string(body) != `{"a":1}` || gotHdr.Get("Content-Type") != "application/json" {
		t.Fatalf("decoded %d %v %q %v", status, gotHdr, body, ok)
	}
	if _, _, _, ok := decodePayload([]byte{0, 0, 0}); ok {
		t.Fatal("short payload should not decode")
	}
	if _, _, _, ok := decodePayload([]byte{0, 0, 0, 200, 0, 0, 1, 0}); ok {
		t.Fatal("header length past the end should not decode")
	}
}

func TestCaptureWriterLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, _ = cw.Write([]byte("abc"))
	_, _ = cw.Write([]byte("defg"))
	if cw.buf.String() != "abcd" || cw.size != 7 || rec.Body.String() != "abcdefg" {
		t.Fatalf("buf=%q size=%d client=%q", cw.buf.String(), cw.size, rec.Body.String())
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/translate", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/v1/translate")
	SetUserID(c, 3)

	tests := map[string]string{
		"ip":       "rl:ip:10.0.0.1",
		"user":     "rl:user:3",
		"ip_user":  "rl:ip:10.0.0.1:user:3",
		"route":    "rl:route:POST /api/v1/translate",
		"anything": "rl:ip:10.0.0.1:user:3:route:POST /api/v1/translate",
	}
	for strategy, want := range tests {
		got := buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}, c)
		if got != want {
			t.Fatalf("%s: key = %q, want %q", strategy, got, want)
		}
	}
}

func TestAsInt64(t *testing.T) {
	for _, v := range []interface{}{int64(5), 5, int32(5), 5.0, "5"} {
		if asInt64(v) != 5 {
			t.Fatalf("asInt64(%#v) != 5", v)
		}
	}
	if asInt64(errors.New("x")) != 0 {
		t.Fatal("unknown type should be 0")
	}
}
