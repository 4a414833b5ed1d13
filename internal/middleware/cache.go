package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/speaknote/internal/config"
)

// captureWriter captures response body/status while forwarding to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) { cw.status = code; cw.ResponseWriter.WriteHeader(code) }

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit <= 0 {
		cw.buf.Write(b)
	} else if remain := cw.limit - cw.size; remain > 0 {
		if int64(len(b)) <= remain {
			cw.buf.Write(b)
		} else {
			cw.buf.Write(b[:remain])
		}
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// ResponseCache caches authenticated GET responses per user. Entries are
// keyed by a per-user generation number, so bumping the generation
// invalidates everything cached for that user at once; stale keys simply
// expire.
type ResponseCache struct {
	cfg config.CacheConfig
	rdb *redis.Client

	// Day, when set, returns the caller's current calendar day. It is part
	// of every key so date-windowed responses roll over at local midnight.
	Day func() string
}

// NewResponseCache returns a cache; rdb may be nil, in which case the
// middleware passes through and InvalidateUser is a no-op.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client) *ResponseCache {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Minute
	}
	return &ResponseCache{cfg: cfg, rdb: rdb}
}

func (rc *ResponseCache) enabled() bool { return rc != nil && rc.cfg.Enabled && rc.rdb != nil }

func (rc *ResponseCache) genKey(uid string) string {
	return fmt.Sprintf("%s:gen:%s", rc.cfg.Prefix, uid)
}

// InvalidateUser drops every cached response of userID.
func (rc *ResponseCache) InvalidateUser(ctx context.Context, userID int64) error {
	if !rc.enabled() {
		return nil
	}
	key := rc.genKey(strconv.FormatInt(userID, 10))
	pipe := rc.rdb.TxPipeline()
	pipe.Incr(ctx, key)
	// outlive every entry written under the previous generation
	pipe.Expire(ctx, key, 24*time.Hour+rc.cfg.TTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (rc *ResponseCache) cacheKey(ctx context.Context, c echo.Context) (string, error) {
	uid := userKey(c)
	gen, err := rc.rdb.Get(ctx, rc.genKey(uid)).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	return rc.entryKey(c, uid, gen), nil
}

// entryKey is prefix:u:<uid>:g:<generation>:<sha1(day method route query)>.
func (rc *ResponseCache) entryKey(c echo.Context, uid string, gen int64) string {
	day := ""
	if rc.Day != nil {
		day = rc.Day()
	}
	r := c.Request()
	sum := sha1.Sum([]byte(day + ":" + r.Method + ":" + c.Path() + ":" + r.URL.RawQuery))
	return fmt.Sprintf("%s:u:%s:g:%d:%x", rc.cfg.Prefix, uid, gen, sum[:])
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:8+len(hdrJSON)], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	hdr := make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &hdr); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, hdr, bs[8+hlen:], true
}

// Middleware serves cached responses and stores fresh 200s. It must run
// after JWTAuth so entries are scoped to the caller.
func (rc *ResponseCache) Middleware() echo.MiddlewareFunc {
	if !rc.enabled() {
		return passThrough
	}
	maxBody := int64(rc.cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rc.cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			if _, ok := UserID(c); !ok {
				return next(c)
			}

			ctx := c.Request().Context()
			key, err := rc.cacheKey(ctx, c)
			if err != nil {
				return next(c)
			}

			if bs, err := rc.rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					for k, vals := range hdr {
						if strings.EqualFold(k, echo.HeaderContentLength) {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					if len(body) > 0 {
						_, _ = c.Response().Write(body)
					}
					return nil
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			// truncated bodies are never stored
			if cw.status != http.StatusOK || (maxBody > 0 && cw.size > maxBody) {
				return nil
			}
			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			if payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes()); err == nil {
				_ = rc.rdb.SetEx(context.Background(), key, payload, rc.cfg.TTL).Err()
			}
			return nil
		}
	}
}
