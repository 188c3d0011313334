package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadowprobe/shadowprobe/pkg/httpclient"
)

// site serves HTML pages from a path map and counts hits per path.
type site struct {
	pages map[string]string
	mu    sync.Mutex
	hits  map[string]int
}

func newSite(pages map[string]string) (*site, *httptest.Server) {
	s := &site{pages: pages, hits: make(map[string]int)}
	return s, httptest.NewServer(s)
}

func (s *site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	s.mu.Unlock()

	body, ok := s.pages[r.URL.Path]
	if !ok {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, body)
}

func (s *site) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func newCrawler(depth, concurrency int) *Crawler {
	return New(Config{
		MaxDepth:       depth,
		MaxConcurrency: concurrency,
		Client:         httpclient.NewClient(httpclient.DefaultConfig()),
	})
}

func sortedURLs(r *Result) []string {
	out := r.URLs()
	sort.Strings(out)
	return out
}

func TestCrawl_ExtractsAllReferenceKinds(t *testing.T) {
	_, srv := newSite(map[string]string{
		"/": `<html><head>
			<link rel="stylesheet" href="/style.css">
			<script src="/app.js"></script>
		</head><body>
			<a href="/a">a</a>
			<a href="/b#top">b</a>
			<a href="mailto:ops@example.com">mail</a>
			<a href="http://other.example/c">offsite</a>
			<form action="/login" method="post"></form>
		</body></html>`,
		"/a": `<p>leaf</p>`,
		"/b": `<p>leaf</p>`,
	})
	defer srv.Close()

	res, err := newCrawler(1, 4).Crawl(context.Background(), srv.URL)
	require.NoError(t, err)

	want := []string{
		srv.URL + "/",
		srv.URL + "/a",
		srv.URL + "/app.js",
		srv.URL + "/b",
		srv.URL + "/login",
		srv.URL + "/style.css",
	}
	sort.Strings(want)
	assert.Equal(t, want, sortedURLs(res))
	assert.Equal(t, srv.URL+"/", res.Seed)
	assert.Equal(t, srv.URL+"/", res.Endpoints[0].URL)
}

func TestCrawl_DepthBound(t *testing.T) {
	s, srv := newSite(map[string]string{
		"/":  `<a href="/1">1</a>`,
		"/1": `<a href="/2">2</a>`,
		"/2": `<a href="/3">3</a>`,
		"/3": `<p>deep</p>`,
	})
	defer srv.Close()

	res, err := newCrawler(2, 2).Crawl(context.Background(), srv.URL+"/")
	require.NoError(t, err)

	assert.Equal(t, []string{srv.URL + "/", srv.URL + "/1", srv.URL + "/2"}, sortedURLs(res))
	for _, e := range res.Endpoints {
		assert.LessOrEqual(t, e.Depth, 2)
	}
	assert.Zero(t, s.hitCount("/3"))
}

func TestCrawl_DepthZeroFetchesOnlySeed(t *testing.T) {
	s, srv := newSite(map[string]string{"/": `<a href="/a">a</a>`})
	defer srv.Close()

	res, err := newCrawler(0, 2).Crawl(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/"}, res.URLs())
	assert.Zero(t, s.hitCount("/a"))
}

func TestCrawl_EachURLVisitedOnce(t *testing.T) {
	// Every page links to every other page and to /shared.
	pages := make(map[string]string)
	paths := []string{"/", "/p1", "/p2", "/p3", "/p4", "/p5", "/p6"}
	var links string
	for _, p := range paths {
		links += fmt.Sprintf(`<a href="%s">x</a>`, p)
	}
	links += `<a href="/shared">s</a><a href="/shared#again">s</a>`
	for _, p := range paths {
		pages[p] = links
	}
	pages["/shared"] = links

	s, srv := newSite(pages)
	defer srv.Close()

	res, err := newCrawler(3, 8).Crawl(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Len(t, res.Endpoints, len(paths)+1)
	seen := make(map[string]bool)
	for _, u := range res.URLs() {
		assert.False(t, seen[u], "duplicate endpoint %s", u)
		seen[u] = true
	}
	for _, p := range append(paths, "/shared") {
		assert.Equal(t, 1, s.hitCount(p), "hits for %s", p)
	}
}

func TestCrawl_ShallowerPathReexpandsPage(t *testing.T) {
	// /x is first reached at depth 3 via / -> /b -> /c -> /x, then at
	// depth 2 via the slow /a. Its child /y is within the bound only on
	// the shorter path.
	pages := map[string]string{
		"/":  `<a href="/a">a</a><a href="/b">b</a>`,
		"/a": `<a href="/x">x</a>`,
		"/b": `<a href="/c">c</a>`,
		"/c": `<a href="/x">x</a>`,
		"/x": `<a href="/y">y</a>`,
		"/y": `leaf`,
	}
	var mu sync.Mutex
	hits := make(map[string]int)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		mu.Unlock()
		if r.URL.Path == "/a" {
			time.Sleep(300 * time.Millisecond)
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, pages[r.URL.Path])
	}))
	defer srv.Close()

	res, err := newCrawler(3, 4).Crawl(context.Background(), srv.URL)
	require.NoError(t, err)

	depths := make(map[string]int)
	for _, e := range res.Endpoints {
		depths[strings.TrimPrefix(e.URL, srv.URL)] = e.Depth
	}
	assert.Contains(t, depths, "/y")
	assert.Equal(t, 2, depths["/x"])
	assert.Len(t, res.Endpoints, 6)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, hits["/x"], "/x must not be fetched twice")
}

func TestCrawl_FragmentsCollapse(t *testing.T) {
	s, srv := newSite(map[string]string{
		"/":  `<a href="/l">l</a><a href="/r">r</a>`,
		"/l": `<a href="/x#frag1">x</a>`,
		"/r": `<a href="/x#frag2">x</a>`,
		"/x": `<p>x</p>`,
	})
	defer srv.Close()

	res, err := newCrawler(3, 4).Crawl(context.Background(), srv.URL+"/#intro")
	require.NoError(t, err)

	var xs []string
	for _, u := range res.URLs() {
		if strings.HasPrefix(u, srv.URL+"/x") {
			xs = append(xs, u)
		}
	}
	assert.Equal(t, []string{srv.URL + "/x"}, xs)
	assert.Equal(t, 1, s.hitCount("/x"))
	assert.Equal(t, srv.URL+"/", res.Seed)
}

func TestCrawl_SameHostOnly(t *testing.T) {
	_, other := newSite(map[string]string{"/": `<p>other</p>`})
	defer other.Close()

	_, srv := newSite(map[string]string{
		"/": fmt.Sprintf(`<a href="%s/">other port</a><a href="/local">local</a>`, other.URL),
	})
	defer srv.Close()

	res, err := newCrawler(2, 2).Crawl(context.Background(), srv.URL)
	require.NoError(t, err)
	for _, u := range res.URLs() {
		assert.Contains(t, u, srv.URL)
	}
	assert.Len(t, res.Endpoints, 2)
}

func TestCrawl_SiblingsFetchedConcurrently(t *testing.T) {
	var inFlight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if r.URL.Path == "/" {
			for i := 0; i < 6; i++ {
				fmt.Fprintf(w, `<a href="/child/%d">c</a>`, i)
			}
			return
		}
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(150 * time.Millisecond)
		inFlight.Add(-1)
	}))
	defer srv.Close()

	start := time.Now()
	res, err := newCrawler(1, 6).Crawl(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Len(t, res.Endpoints, 7)
	assert.Greater(t, peak.Load(), int32(1), "children were fetched one at a time")
	assert.Less(t, time.Since(start), 6*150*time.Millisecond)
}

func TestCrawl_ConnectionRefusedYieldsSeed(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	seed := srv.URL + "/"
	srv.Close()

	res, err := newCrawler(3, 2).Crawl(context.Background(), seed)
	require.NoError(t, err)
	assert.Equal(t, []string{seed}, res.URLs())
	assert.Equal(t, int64(1), res.Failed)
	assert.Zero(t, res.Fetched)
}

func TestCrawl_NonHTMLIsLeaf(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"next":"<a href=\"/hidden\">"}`)
	}))
	defer srv.Close()

	res, err := newCrawler(3, 2).Crawl(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, res.Endpoints, 1)
}

func TestCrawl_FollowsSameHostRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			http.Redirect(w, r, "/home", http.StatusFound)
		case "/home":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<a href="/about">about</a>`)
		default:
			w.Header().Set("Content-Type", "text/html")
		}
	}))
	defer srv.Close()

	res, err := newCrawler(2, 2).Crawl(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/", srv.URL + "/about", srv.URL + "/home"}, sortedURLs(res))
}

func TestCrawl_MaxPages(t *testing.T) {
	_, srv := newSite(map[string]string{
		"/": `<a href="/1">1</a><a href="/2">2</a><a href="/3">3</a><a href="/4">4</a>`,
	})
	defer srv.Close()

	c := New(Config{MaxDepth: 1, MaxConcurrency: 2, MaxPages: 3, Client: httpclient.NewClient(httpclient.DefaultConfig())})
	res, err := c.Crawl(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, res.Endpoints, 3)
}

func TestCrawl_OnEndpoint(t *testing.T) {
	_, srv := newSite(map[string]string{"/": `<a href="/a">a</a>`, "/a": ``})
	defer srv.Close()

	var mu sync.Mutex
	var got []Endpoint
	c := New(Config{
		MaxDepth:       1,
		MaxConcurrency: 2,
		Client:         httpclient.NewClient(httpclient.DefaultConfig()),
		OnEndpoint: func(e Endpoint) {
			mu.Lock()
			got = append(got, e)
			mu.Unlock()
		},
	})
	res, err := c.Crawl(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.ElementsMatch(t, res.Endpoints, got)
}

func TestCrawl_Cancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	res, err := newCrawler(3, 2).Crawl(ctx, srv.URL)
	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, res)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestCrawl_InvalidSeed(t *testing.T) {
	c := newCrawler(1, 1)
	for _, seed := range []string{"", "not a url", "/relative/path", "ftp://example.com/", "http://%zz"} {
		_, err := c.Crawl(context.Background(), seed)
		assert.ErrorIs(t, err, ErrInvalidSeed, seed)
	}
}

func TestCrawl_DefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.MaxDepth)
	assert.Equal(t, 10, cfg.MaxConcurrency)

	c := New(Config{MaxDepth: -1})
	assert.Equal(t, 0, c.config.MaxDepth)
	assert.Equal(t, 1, c.config.MaxConcurrency)
	assert.NotNil(t, c.config.Client)
}
