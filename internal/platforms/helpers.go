package platforms

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultUserAgent = "SmartPortfolio/1.0"

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}

func normalizeTitle(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(s) > 160 {
		return s[:160]
	}
	return s
}

func firstN(in []string, n int) []string {
	if len(in) > n {
		in = in[:n]
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseRFC3339(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func unixTime(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func itemQuery(opts ItemOptions) url.Values {
	q := url.Values{}
	if opts.Type != "" {
		q.Set("type", opts.Type)
	}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}
	if opts.Timeframe != "" {
		q.Set("timeframe", opts.Timeframe)
	}
	if opts.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(opts.PerPage))
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	return q
}

// getJSON issues one GET and decodes a 2xx body into dst. Every failure is an *UpstreamError.
func getJSON(ctx context.Context, client *http.Client, p Platform, rawURL string, headers map[string]string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &UpstreamError{Platform: p, Kind: KindNetwork, Message: err.Error(), Err: err}
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := client.Do(req)
	if err != nil {
		return transportError(p, err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return transportError(p, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return statusError(p, res, body)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return &UpstreamError{Platform: p, Kind: KindBadResponse, Status: res.StatusCode, Message: "invalid json: " + err.Error(), Err: err}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
