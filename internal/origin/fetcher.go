// Package origin performs the only outbound network I/O of the service: it
// retrieves the image for a status code from the configured upstream. It has
// no knowledge of the cache.
package origin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/any-hub/statuscat/internal/cache"
	"github.com/any-hub/statuscat/internal/version"
)

// Fetcher 根据 Key 从上游拉取正文。
type Fetcher interface {
	Fetch(ctx context.Context, key cache.Key) ([]byte, error)
}

var (
	// ErrEmptyBody 表示上游返回成功状态但正文为空。
	ErrEmptyBody = errors.New("origin returned empty body")
	// ErrBodyTooLarge 表示正文超出 MaxBlobSize。
	ErrBodyTooLarge = errors.New("origin body exceeds size limit")
)

// FetchError 汇总网络失败、非 2xx 状态、超时等回源错误。StatusCode 为 0 表示未拿到响应。
type FetchError struct {
	Key        cache.Key
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: upstream status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// HTTPFetcher 通过共享 http.Client 请求 <base>/<code>；超时由 client.Timeout 保证。
type HTTPFetcher struct {
	client  *http.Client
	base    *url.URL
	maxSize int64
}

// NewHTTPFetcher 解析上游基础地址。client 必须设置有限的 Timeout。
func NewHTTPFetcher(client *http.Client, base string, maxSize int64) (*HTTPFetcher, error) {
	if client == nil {
		return nil, errors.New("http client is required")
	}
	if client.Timeout <= 0 {
		return nil, errors.New("http client must enforce a timeout")
	}
	parsed, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid origin: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid origin: %s", base)
	}
	if maxSize <= 0 {
		return nil, fmt.Errorf("invalid max blob size: %d", maxSize)
	}
	return &HTTPFetcher{client: client, base: parsed, maxSize: maxSize}, nil
}

// URL 返回 key 对应的上游地址。
func (f *HTTPFetcher) URL(key cache.Key) string {
	target := *f.base
	target.Path = f.base.Path + "/" + key.String()
	target.RawPath = ""
	return target.String()
}

func (f *HTTPFetcher) Fetch(ctx context.Context, key cache.Key) ([]byte, error) {
	target := f.URL(key)
	fail := func(status int, err error) error {
		return &FetchError{Key: key, URL: target, StatusCode: status, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fail(0, err)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fail(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fail(resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}

	blob, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fail(0, err)
	}
	if int64(len(blob)) > f.maxSize {
		return nil, fail(0, ErrBodyTooLarge)
	}
	if len(blob) == 0 {
		return nil, fail(0, ErrEmptyBody)
	}
	return blob, nil
}
