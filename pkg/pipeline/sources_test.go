package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleHTML = `<!doctype html>
<html><head><title>t</title><style>.x{}</style><script>var a=1;</script></head>
<body>
<nav><a href="/">Home</a></nav>
<article>
  <h1>Coping with stress</h1>
  <p>Take a short   walk.</p>
  <pre>rm -rf /</pre>
  <p>Use <code>sleep()</code> wisely and rest.</p>
  <ul><li>Breathe slowly</li><li><p>Drink water</p></li></ul>
</article>
<footer>Copyright</footer>
</body></html>`

func TestExtractMainText(t *testing.T) {
	text, err := ExtractMainText(strings.NewReader(articleHTML))
	require.NoError(t, err)

	assert.Equal(t, "Coping with stress\n\nTake a short walk.\n\nUse wisely and rest.\n\nBreathe slowly\n\nDrink water", text)
	assert.NotContains(t, text, "rm -rf")
	assert.NotContains(t, text, "Home")
	assert.NotContains(t, text, "Copyright")
}

func TestExtractMainTextFallsBackToBody(t *testing.T) {
	text, err := ExtractMainText(strings.NewReader(`<html><body><div>Just   a div</div></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, "Just a div", text)

	text, err = ExtractMainText(strings.NewReader(`<html><body><pre>only code</pre></body></html>`))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestHTTPFetcherCachesPages(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(5*time.Second, 8, time.Minute)
	text, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, text, "Take a short walk.")

	again, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, text, again)
	assert.Equal(t, int32(1), hits.Load())
}

func TestHTTPFetcherRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(5*time.Second, 0, 0)
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestHTTPFetcherTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(50*time.Millisecond, 0, 0)
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestSerpAPISearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "google", q.Get("engine"))
		assert.Equal(t, "coping with grief", q.Get("q"))
		assert.Equal(t, "secret", q.Get("api_key"))
		assert.Equal(t, "2", q.Get("num"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"organic_results":[{"link":"https://a.example"},{"link":""},{"link":"https://b.example"},{"link":"https://c.example"}]}`))
	}))
	defer srv.Close()

	s := NewSerpAPI("secret", srv.URL, 5*time.Second)
	links, err := s.Search(context.Background(), "coping with grief", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, links)
}

func TestSerpAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") == "bad" {
			http.Error(w, `{"error":"Invalid API key"}`, http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"error":"Google hasn't returned any results for this query."}`))
	}))
	defer srv.Close()

	_, err := NewSerpAPI("bad", srv.URL, time.Second).Search(context.Background(), "q", 10)
	assert.Error(t, err)

	_, err = NewSerpAPI("good", srv.URL, time.Second).Search(context.Background(), "q", 10)
	assert.Error(t, err)
}
