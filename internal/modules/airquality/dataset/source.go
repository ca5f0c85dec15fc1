package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// IsRemote reports whether source is an http(s) URL rather than a file path.
func IsRemote(source string) bool {
	s := strings.ToLower(source)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Open returns the dataset body for a file path or an http(s) URL, along with
// its size in bytes, or -1 when the size is not known up front. The caller
// closes the body.
func Open(ctx context.Context, source string, timeout time.Duration) (io.ReadCloser, int64, error) {
	if IsRemote(source) {
		return fetch(ctx, source, timeout)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, 0, fmt.Errorf("open dataset: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat dataset: %w", err)
	}
	return f, info.Size(), nil
}

func fetch(ctx context.Context, url string, timeout time.Duration) (io.ReadCloser, int64, error) {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "text/csv, text/plain;q=0.9, */*;q=0.5")

	resp, err := client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch dataset %s: %w", url, err)
	}

	body := resp.RawBody()
	if resp.StatusCode() != http.StatusOK {
		_ = body.Close()
		return nil, 0, fmt.Errorf("fetch dataset %s: unexpected status %d", url, resp.StatusCode())
	}
	return body, resp.RawResponse.ContentLength, nil
}
