package helpers

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	mathrand "math/rand"
	"net/http"
	"slices"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"

	pkgerrors "sjsage522/lotteryworker/pkg/errors"
)

// HTTP client and header configurations
var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	}

	referers = []string{
		"https://www.google.com/",
		"https://www.bing.com/",
		"https://duckduckgo.com/",
	}

	defaultTransport = http.DefaultTransport.(*http.Transport).Clone()
	legacyTransport  = newLegacyTransport()
)

// DefaultTimeout applies when FetchOptions leaves Timeout unset
const DefaultTimeout = 30 * time.Second

// FetchOptions tunes a single fetch
type FetchOptions struct {
	Timeout time.Duration
	// LegacyTLS allows TLS 1.0 and the obsolete cipher suites some state
	// lottery servers still require
	LegacyTLS bool
	// Binary skips charset conversion, for PDFs
	Binary bool
}

// newLegacyTransport accepts every cipher suite Go still implements,
// including the ones it no longer offers by default
func newLegacyTransport() *http.Transport {
	var suites []uint16
	for _, s := range tls.CipherSuites() {
		suites = append(suites, s.ID)
	}
	for _, s := range tls.InsecureCipherSuites() {
		suites = append(suites, s.ID)
	}

	t := http.DefaultTransport.(*http.Transport).Clone()
	t.TLSClientConfig = &tls.Config{
		MinVersion:   tls.VersionTLS10,
		CipherSuites: suites,
	}
	return t
}

func clientFor(opts FetchOptions) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := defaultTransport
	if opts.LegacyTLS {
		transport = legacyTransport
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// FetchWithRandomHeaders sends an HTTP GET request with randomized browser-like
// headers and returns the body, converted to UTF-8 unless opts.Binary is set.
// Failures are returned as network or rate_limit LotteryErrors carrying the URL.
func FetchWithRandomHeaders(ctx context.Context, url string, opts FetchOptions) ([]byte, error) {
	// Create a new random number generator for header selection
	rnd := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, pkgerrors.NewFetch(url, "failed to create request", err)
	}

	// Set browser-like headers
	req.Header.Set("User-Agent", userAgents[rnd.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/pdf;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Referer", referers[rnd.Intn(len(referers))])
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.Header.Set("Sec-Fetch-User", "?1")

	resp, err := clientFor(opts).Do(req)
	if err != nil {
		return nil, pkgerrors.NewFetch(url, "failed to fetch URL", err)
	}
	defer resp.Body.Close()

	// Check for rate limiting
	if slices.Contains([]int{http.StatusTooManyRequests, 430}, resp.StatusCode) {
		return nil, pkgerrors.NewRateLimit(url, resp.Header.Get("Retry-After"))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.NewFetch(url, fmt.Sprintf("unexpected status code: %d", resp.StatusCode), nil)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.NewFetch(url, "failed to read response body", err)
	}

	if opts.Binary {
		return bodyBytes, nil
	}
	return toUTF8(url, bodyBytes, resp.Header.Get("Content-Type"))
}

// toUTF8 converts a body using the charset from the Content-Type header or
// the document's own meta tags
func toUTF8(url string, body []byte, contentType string) ([]byte, error) {
	enc, name, _ := charset.DetermineEncoding(body, contentType)
	if strings.EqualFold(name, "utf-8") {
		return body, nil
	}
	return decode(url, body, enc)
}

func decode(url string, body []byte, enc encoding.Encoding) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, enc.NewDecoder().Reader(bytes.NewReader(body))); err != nil {
		return nil, pkgerrors.NewFetch(url, "failed to convert body to UTF-8", err)
	}
	return buf.Bytes(), nil
}
