package helpers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	pkgerrors "sjsage522/lotteryworker/pkg/errors"
)

func TestFetchWithRandomHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check that headers are set
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("Accept-Language"))
		assert.NotEmpty(t, r.Header.Get("Referer"))

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html><body>Oct 25 2023 07 14 22</body></html>"))
	}))
	defer server.Close()

	body, err := FetchWithRandomHeaders(context.Background(), server.URL, FetchOptions{Timeout: 5 * time.Second})
	assert.NoError(t, err)
	assert.Contains(t, string(body), "Oct 25 2023")
}

func TestFetchWithRandomHeadersNonUTF8(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.WriteHeader(http.StatusOK)
		// "Café" in ISO-8859-1
		w.Write([]byte("<html><body>Caf\xe9</body></html>"))
	}))
	defer server.Close()

	body, err := FetchWithRandomHeaders(context.Background(), server.URL, FetchOptions{})
	assert.NoError(t, err)
	assert.Contains(t, string(body), "Café")
}

// brokenEncoding decodes nothing and fails every read
type brokenEncoding struct{}

func (brokenEncoding) NewDecoder() *encoding.Decoder {
	return &encoding.Decoder{Transformer: brokenTransformer{}}
}

func (brokenEncoding) NewEncoder() *encoding.Encoder {
	return &encoding.Encoder{Transformer: brokenTransformer{}}
}

type brokenTransformer struct{ transform.NopResetter }

func (brokenTransformer) Transform(dst, src []byte, atEOF bool) (int, int, error) {
	return 0, 0, errors.New("bad byte sequence")
}

func TestDecodeFailureIsFetchError(t *testing.T) {
	_, err := decode("https://example.com/results", []byte("Caf\xe9"), brokenEncoding{})
	le, ok := pkgerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, pkgerrors.ErrorTypeNetwork, le.Type)
	assert.Equal(t, "https://example.com/results", le.Source)
	assert.ErrorContains(t, err, "bad byte sequence")
}

func TestFetchWithRandomHeadersBinary(t *testing.T) {
	payload := []byte("%PDF-1.4\n\xe9\xff")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(payload)
	}))
	defer server.Close()

	body, err := FetchWithRandomHeaders(context.Background(), server.URL, FetchOptions{Binary: true, LegacyTLS: true})
	assert.NoError(t, err)
	assert.Equal(t, payload, body)
}

func TestFetchWithRandomHeadersError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := FetchWithRandomHeaders(context.Background(), server.URL, FetchOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 500")
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrorTypeNetwork))

	// Test with rate limiting
	serverRateLimited := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer serverRateLimited.Close()

	_, err = FetchWithRandomHeaders(context.Background(), serverRateLimited.URL, FetchOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited; retry after 60")
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrorTypeRateLimit))
}

func TestFetchWithRandomHeadersInvalidURL(t *testing.T) {
	_, err := FetchWithRandomHeaders(context.Background(), "http://invalid.url.that.does.not.exist", FetchOptions{Timeout: 2 * time.Second})
	assert.Error(t, err)
	le, ok := pkgerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "http://invalid.url.that.does.not.exist", le.Source)
}

func TestFetchWithRandomHeadersCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := FetchWithRandomHeaders(ctx, server.URL, FetchOptions{})
	assert.Error(t, err)
}

func TestExpandURL(t *testing.T) {
	day := time.Date(2023, 10, 24, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "https://example.com/powerball/numbers/2023", ExpandURL("https://example.com/powerball/numbers/{year}", day))
	assert.Equal(t, "https://example.com/draw/10-24-2023?d=2023-10-24", ExpandURL("https://example.com/draw/{mmddyyyy}?d={date}", day))

	assert.True(t, HasPlaceholder("https://example.com/{year}"))
	assert.False(t, HasDatePlaceholder("https://example.com/{year}"))
	assert.True(t, HasDatePlaceholder("https://example.com/{date}"))
	assert.False(t, HasPlaceholder("https://example.com/p3.pdf"))
}
