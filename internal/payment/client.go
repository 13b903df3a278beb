package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// maxProviderBody bounds the size of provider responses we decode.
const maxProviderBody = 1 << 20

// getJSON performs an authenticated GET and decodes the JSON response
// into dst.  Deadline and network timeouts are reported as
// ErrProviderTimeout.
func getJSON(ctx context.Context, client *http.Client, url, bearer string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := client.Do(req)
	if err != nil {
		return wrapTimeout(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxProviderBody))
		return fmt.Errorf("provider responded %d for %s", resp.StatusCode, url)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProviderBody)).Decode(dst); err != nil {
		return wrapTimeout(fmt.Errorf("decode provider response: %w", err))
	}
	return nil
}

// postJSON sends body as JSON with a bearer token and decodes the
// response into dst.
func postJSON(ctx context.Context, client *http.Client, url, bearer string, body, dst interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := client.Do(req)
	if err != nil {
		return wrapTimeout(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxProviderBody))
		return fmt.Errorf("provider responded %d for %s", resp.StatusCode, url)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProviderBody)).Decode(dst); err != nil {
		return wrapTimeout(fmt.Errorf("decode provider response: %w", err))
	}
	return nil
}

func wrapTimeout(err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%w: %v", ErrProviderTimeout, err)
	}
	return err
}

// equalHex compares two hex digests in constant time, ignoring case.
func equalHex(expected []byte, supplied string) bool {
	got, err := hex.DecodeString(strings.TrimSpace(supplied))
	if err != nil || len(got) == 0 {
		return false
	}
	return hmac.Equal(expected, got)
}

func defaultClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{}
}

// ParseAmount converts a decimal amount in major units ("150000",
// "1500.50") to cents.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" || strings.TrimLeft(whole, "0123456789") != "" {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if len(frac) > 2 {
		frac = strings.TrimRight(frac, "0")
	}
	if len(frac) > 2 || strings.TrimLeft(frac, "0123456789") != "" {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	f, _ := strconv.ParseInt(frac, 10, 64)
	return w*100 + f, nil
}

// FormatAmount renders cents as a decimal amount in major units.
func FormatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
