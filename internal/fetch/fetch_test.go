package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>listing</body></html>"))
	}))
	defer srv.Close()

	result, err := URL(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Contains(t, result.Body, "listing")
	assert.Contains(t, result.ContentType, "text/html")
}

func TestURL_CustomHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "custom-agent", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("{}"))
	}))
	defer srv.Close()

	opts := DefaultOptions()
	opts.UserAgent = "custom-agent"
	opts.Headers = map[string]string{"Accept": "application/json"}

	_, err := URL(context.Background(), srv.URL, opts)
	require.NoError(t, err)
}

func TestURL_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	result, err := URL(context.Background(), srv.URL, nil)
	require.Error(t, err)
	require.NotNil(t, result, "body is still returned for diagnostics")
	assert.Equal(t, http.StatusForbidden, result.StatusCode)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, fetchErr.Message, "403")
}

func TestURL_Invalid(t *testing.T) {
	for _, bad := range []string{"", "not-a-url", "/relative/path"} {
		_, err := URL(context.Background(), bad, nil)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestExtractText(t *testing.T) {
	html := `<html><body>
	<nav>Home | About</nav>
	<main>
	  <h1>Bid Opportunities</h1>
	  <p>Sealed bids due April 15.</p>
	</main>
	<script>trackPageView()</script>
	<footer>Copyright</footer>
	</body></html>`

	text, err := ExtractText(html, []string{"main"})
	require.NoError(t, err)
	assert.Contains(t, text, "Bid Opportunities")
	assert.Contains(t, text, "Sealed bids due April 15.")
	assert.NotContains(t, text, "Home | About")
	assert.NotContains(t, text, "trackPageView")
	assert.NotContains(t, text, "Copyright")
}

func TestExtractText_FallsBackToBody(t *testing.T) {
	text, err := ExtractText("<html><body><p>plain content</p></body></html>", []string{"#missing"})
	require.NoError(t, err)
	assert.Equal(t, "plain content", text)
}

func TestExtractText_CollapsesBlankLines(t *testing.T) {
	text, err := ExtractText("<body><p>one</p>\n\n\n<p>two</p></body>", nil)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo", text)
}
