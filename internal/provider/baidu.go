package provider

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Baidu calls the Baidu Fanyi general translation API. Requests are signed
// with md5(appid + q + salt + key).
type Baidu struct {
	AppID      string
	Key        string
	Endpoint   string
	HTTPClient *http.Client
}

func NewBaidu(appID, key, endpoint string, timeout time.Duration) *Baidu {
	return &Baidu{
		AppID:      appID,
		Key:        key,
		Endpoint:   endpoint,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type baiduResponse struct {
	ErrorCode   string `json:"error_code"`
	ErrorMsg    string `json:"error_msg"`
	TransResult []struct {
		Src string `json:"src"`
		Dst string `json:"dst"`
	} `json:"trans_result"`
}

func baiduSign(appID, q, salt, key string) string {
	sum := md5.Sum([]byte(appID + q + salt + key))
	return hex.EncodeToString(sum[:])
}

func (b *Baidu) Translate(ctx context.Context, text, from, to string) (string, error) {
	if b.AppID == "" || b.Key == "" {
		return "", fmt.Errorf("baidu: %w", ErrNotConfigured)
	}
	salt := strconv.FormatInt(time.Now().UnixNano(), 10)
	params := url.Values{}
	params.Set("q", text)
	params.Set("from", from)
	params.Set("to", to)
	params.Set("appid", b.AppID)
	params.Set("salt", salt)
	params.Set("sign", baiduSign(b.AppID, text, salt, b.Key))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := b.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("baidu: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("baidu: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &UpstreamError{Provider: "baidu", Status: resp.StatusCode, Body: truncate(string(raw), 256)}
	}

	var out baiduResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("baidu: decode: %w", err)
	}
	// success responses omit error_code; "52000" also means success
	if out.ErrorCode != "" && out.ErrorCode != "52000" {
		return "", &UpstreamError{Provider: "baidu", Status: resp.StatusCode, Code: out.ErrorCode, Body: out.ErrorMsg}
	}
	if len(out.TransResult) == 0 {
		return "", &UpstreamError{Provider: "baidu", Status: resp.StatusCode, Body: "empty trans_result"}
	}
	parts := make([]string, 0, len(out.TransResult))
	for _, r := range out.TransResult {
		parts = append(parts, r.Dst)
	}
	// Baidu splits multi-line input into one result per line.
	return strings.Join(parts, "\n"), nil
}
