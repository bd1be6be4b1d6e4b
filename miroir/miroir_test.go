package miroir

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	_ "modernc.org/sqlite"
)

const testPixel = "123456789012345"

// upstream is a fake origin server whose markup can be swapped mid-test to
// exercise Refresh.
type upstream struct {
	srv  *httptest.Server
	mu   sync.Mutex
	body string
	code int
	hits int
}

func newUpstream(body string) *upstream {
	u := &upstream{body: body, code: http.StatusOK}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		defer u.mu.Unlock()
		u.hits++
		w.WriteHeader(u.code)
		io.WriteString(w, u.body)
	}))
	return u
}

func (u *upstream) set(body string) {
	u.mu.Lock()
	u.body = body
	u.mu.Unlock()
}

func (u *upstream) fail(code int) {
	u.mu.Lock()
	u.code = code
	u.mu.Unlock()
}

func (u *upstream) requests() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hits
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	svc, err := New(&Config{
		DataDir: dir,
		DBPath:  filepath.Join(dir, "registry.db"),
		BaseURL: "http://clone.test",
		// httptest servers live on loopback.
		URLValidator: func(string) error { return nil },
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func readArtifact(t *testing.T, svc *Service, id string) string {
	t.Helper()
	path, err := svc.ArtifactPath(id)
	if err != nil {
		t.Fatalf("ArtifactPath: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	return string(data)
}

const basePage = `<html><head><title>Shop</title></head><body>
<a href="/product/1">Product One</a>
<a href="https://pay.example/checkout">Buy now</a>
<p>welcome</p>
</body></html>`

func TestCloneLifecycle(t *testing.T) {
	up := newUpstream(basePage)
	defer up.srv.Close()
	svc := newTestService(t)
	ctx := context.Background()

	page, err := svc.Clone(ctx, "alice", up.srv.URL)
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if page.ID == "" || page.URL != up.srv.URL {
		t.Fatalf("page = %+v", page)
	}
	wantPrefix := "http://clone.test/clones/" + page.ID
	if !strings.HasPrefix(page.CloneURL, wantPrefix) {
		t.Errorf("CloneURL = %q, want prefix %q", page.CloneURL, wantPrefix)
	}
	if page.PixelID != nil || len(page.Scripts) != 0 || page.ViewCount != 0 {
		t.Errorf("fresh clone carries state: %+v", page)
	}
	if got := readArtifact(t, svc, page.ID); !strings.Contains(got, "<title>Shop</title>") {
		t.Errorf("artifact missing source content: %s", got)
	}

	got, err := svc.Get(ctx, "alice", page.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != page.ID {
		t.Errorf("Get returned %s", got.ID)
	}

	pages, err := svc.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pages) != 1 || pages[0].ID != page.ID {
		t.Fatalf("List = %+v", pages)
	}

	if err := svc.Delete(ctx, "alice", page.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, "alice", page.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v", err)
	}
	path, _ := svc.ArtifactPath(page.ID)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("artifact survives delete")
	}
}

func TestCloneInvalidURLSkipsNetwork(t *testing.T) {
	up := newUpstream(basePage)
	defer up.srv.Close()
	svc := newTestService(t)

	if _, err := svc.Clone(context.Background(), "alice", "not a url"); !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("err = %v, want ErrInvalidURL", err)
	}
	if up.requests() != 0 {
		t.Error("invalid URL reached the network")
	}
}

func TestCloneUpstreamFailureLeavesNothing(t *testing.T) {
	up := newUpstream(basePage)
	defer up.srv.Close()
	up.fail(http.StatusInternalServerError)
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Clone(ctx, "alice", up.srv.URL); !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("err = %v, want ErrFetchFailed", err)
	}
	pages, err := svc.List(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 0 {
		t.Errorf("failed clone left registry rows: %+v", pages)
	}
}

func TestCloneRegistryFailureRemovesArtifact(t *testing.T) {
	up := newUpstream(basePage)
	defer up.srv.Close()
	svc := newTestService(t)
	ctx := context.Background()

	// Sabotage the registry after the service is up: the artifact write
	// succeeds, the insert cannot.
	if _, err := svc.Store().DB.Exec(`DROP TABLE clone_scripts; DROP TABLE clones;`); err != nil {
		t.Fatalf("drop tables: %v", err)
	}

	var captured string
	svc.newID = func() string { captured = "doomed-clone"; return captured }

	if _, err := svc.Clone(ctx, "alice", up.srv.URL); !errors.Is(err, ErrPersistFailed) {
		t.Fatalf("err = %v, want ErrPersistFailed", err)
	}
	path, _ := svc.ArtifactPath(captured)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("orphan artifact survives failed registration")
	}
}

func TestPixelInjectAndRemove(t *testing.T) {
	up := newUpstream(basePage)
	defer up.srv.Close()
	svc := newTestService(t)
	ctx := context.Background()

	page, err := svc.Clone(ctx, "alice", up.srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.InjectPixel(ctx, "alice", page.ID, "short"); !errors.Is(err, ErrInvalidPixelID) {
		t.Fatalf("bad pixel id err = %v", err)
	}

	if err := svc.InjectPixel(ctx, "alice", page.ID, testPixel); err != nil {
		t.Fatalf("InjectPixel: %v", err)
	}
	markup := readArtifact(t, svc, page.ID)
	if !strings.Contains(markup, PixelMarkerID) {
		t.Error("marker script missing from artifact")
	}
	if !strings.Contains(markup, "fbq('init', '"+testPixel+"')") {
		t.Error("pixel init missing from artifact")
	}
	if !strings.Contains(markup, "facebook.com/tr?id="+testPixel) {
		t.Error("noscript beacon missing from artifact")
	}

	got, _ := svc.Get(ctx, "alice", page.ID)
	if got.PixelID == nil || *got.PixelID != testPixel {
		t.Fatalf("registry pixel = %v", got.PixelID)
	}

	// A second injection conflicts, same pixel id included, and the
	// artifact keeps exactly one block.
	if err := svc.InjectPixel(ctx, "alice", page.ID, testPixel); !errors.Is(err, ErrPixelAlreadySet) {
		t.Fatalf("same-pixel re-inject err = %v", err)
	}
	if err := svc.InjectPixel(ctx, "alice", page.ID, "999999999999999"); !errors.Is(err, ErrPixelAlreadySet) {
		t.Fatalf("conflicting inject err = %v", err)
	}
	markup = readArtifact(t, svc, page.ID)
	if n := strings.Count(markup, PixelMarkerID); n != 1 {
		t.Errorf("marker appears %d times, want 1", n)
	}

	if err := svc.RemovePixel(ctx, "alice", page.ID); err != nil {
		t.Fatalf("RemovePixel: %v", err)
	}
	markup = readArtifact(t, svc, page.ID)
	if strings.Contains(markup, PixelMarkerID) || strings.Contains(markup, "facebook.com/tr?id=") {
		t.Errorf("pixel residue after removal: %s", markup)
	}
	if !strings.Contains(markup, "<p>welcome</p>") {
		t.Error("unrelated content lost during pixel removal")
	}
	got, _ = svc.Get(ctx, "alice", page.ID)
	if got.PixelID != nil {
		t.Errorf("registry pixel not cleared: %v", *got.PixelID)
	}

	if err := svc.RemovePixel(ctx, "alice", page.ID); !errors.Is(err, ErrNoPixelSet) {
		t.Fatalf("second removal err = %v", err)
	}
}

func TestPixelRetryAfterRegistryWriteFailure(t *testing.T) {
	up := newUpstream(basePage)
	defer up.srv.Close()
	svc := newTestService(t)
	ctx := context.Background()

	page, err := svc.Clone(ctx, "alice", up.srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	// Artifact carries a marker block the registry never recorded, the
	// state a failed registry write leaves behind.
	diverged := `<html><head><script id="` + PixelMarkerID + `">fbq('init', '` + testPixel + `');</script></head><body><p>welcome</p></body></html>`
	if err := svc.ReplaceHTML(ctx, "alice", page.ID, diverged); err != nil {
		t.Fatal(err)
	}

	// The retry completes the registry side and does not double the block.
	if err := svc.InjectPixel(ctx, "alice", page.ID, testPixel); err != nil {
		t.Fatalf("retry inject: %v", err)
	}
	markup := readArtifact(t, svc, page.ID)
	if n := strings.Count(markup, PixelMarkerID); n != 1 {
		t.Errorf("marker appears %d times, want 1", n)
	}
	got, _ := svc.Get(ctx, "alice", page.ID)
	if got.PixelID == nil || *got.PixelID != testPixel {
		t.Fatalf("registry pixel after retry = %v", got.PixelID)
	}

	// And the clone is removable again.
	if err := svc.RemovePixel(ctx, "alice", page.ID); err != nil {
		t.Fatalf("RemovePixel: %v", err)
	}
	if markup := readArtifact(t, svc, page.ID); strings.Contains(markup, PixelMarkerID) {
		t.Error("marker survives removal")
	}
}

func TestScriptAddAndRemove(t *testing.T) {
	up := newUpstream(basePage)
	defer up.srv.Close()
	svc := newTestService(t)
	ctx := context.Background()

	page, err := svc.Clone(ctx, "alice", up.srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.AddScript(ctx, "alice", page.ID, "<script>x</script>", "sidebar"); !errors.Is(err, ErrInvalidLocation) {
		t.Fatalf("bad location err = %v", err)
	}
	if _, err := svc.AddScript(ctx, "alice", page.ID, "   ", LocationBody); !errors.Is(err, ErrEmptyScript) {
		t.Fatalf("empty content err = %v", err)
	}

	headJS := `<script>if (a < b) { track("head"); }</script>`
	bodyJS := `<script>track("body");</script>`
	headScript, err := svc.AddScript(ctx, "alice", page.ID, headJS, LocationHead)
	if err != nil {
		t.Fatalf("AddScript head: %v", err)
	}
	bodyScript, err := svc.AddScript(ctx, "alice", page.ID, bodyJS, LocationBody)
	if err != nil {
		t.Fatalf("AddScript body: %v", err)
	}

	markup := readArtifact(t, svc, page.ID)
	if !strings.Contains(markup, headJS) {
		t.Errorf("head script not inserted verbatim:\n%s", markup)
	}
	headPart := markup[:strings.Index(markup, "</head>")]
	if !strings.Contains(headPart, headJS) {
		t.Error("head script landed outside <head>")
	}
	if !strings.Contains(markup, bodyJS) {
		t.Error("body script missing")
	}

	got, _ := svc.Get(ctx, "alice", page.ID)
	if len(got.Scripts) != 2 || got.Scripts[0].ID != headScript.ID || got.Scripts[1].ID != bodyScript.ID {
		t.Fatalf("registry scripts = %+v", got.Scripts)
	}

	if err := svc.RemoveScript(ctx, "alice", page.ID, "ghost"); !errors.Is(err, ErrScriptNotFound) {
		t.Fatalf("unknown script err = %v", err)
	}
	if err := svc.RemoveScript(ctx, "alice", page.ID, headScript.ID); err != nil {
		t.Fatalf("RemoveScript: %v", err)
	}

	markup = readArtifact(t, svc, page.ID)
	if strings.Contains(markup, headJS) {
		t.Error("removed script still in artifact")
	}
	if !strings.Contains(markup, bodyJS) {
		t.Error("removal took the wrong script")
	}
	got, _ = svc.Get(ctx, "alice", page.ID)
	if len(got.Scripts) != 1 || got.Scripts[0].ID != bodyScript.ID {
		t.Errorf("registry scripts after removal = %+v", got.Scripts)
	}
}

func TestRemoveScriptFallbackAfterReplace(t *testing.T) {
	up := newUpstream(basePage)
	defer up.srv.Close()
	svc := newTestService(t)
	ctx := context.Background()

	page, err := svc.Clone(ctx, "alice", up.srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	js := `<script>track("orphan");</script>`
	sc, err := svc.AddScript(ctx, "alice", page.ID, js, LocationBody)
	if err != nil {
		t.Fatal(err)
	}

	// Manual replacement keeps the script text but drops the markers.
	replacement := "<html><body><p>custom</p>" + js + "</body></html>"
	if err := svc.ReplaceHTML(ctx, "alice", page.ID, replacement); err != nil {
		t.Fatalf("ReplaceHTML: %v", err)
	}

	if err := svc.RemoveScript(ctx, "alice", page.ID, sc.ID); err != nil {
		t.Fatalf("RemoveScript: %v", err)
	}
	markup := readArtifact(t, svc, page.ID)
	if strings.Contains(markup, js) {
		t.Error("fallback removal left the script text")
	}
	if !strings.Contains(markup, "<p>custom</p>") {
		t.Error("fallback removal damaged surrounding markup")
	}
}

func TestLinksListAndRewrite(t *testing.T) {
	up := newUpstream(basePage)
	defer up.srv.Close()
	svc := newTestService(t)
	ctx := context.Background()

	page, err := svc.Clone(ctx, "alice", up.srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	links, err := svc.ListLinks(ctx, "alice", page.ID)
	if err != nil {
		t.Fatalf("ListLinks: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("got %d links, want 2: %+v", len(links), links)
	}
	if links[0].Href != "/product/1" || links[0].Text != "Product One" || links[0].Index != 0 {
		t.Errorf("links[0] = %+v", links[0])
	}
	if links[1].Href != "https://pay.example/checkout" {
		t.Errorf("links[1] = %+v", links[1])
	}

	if err := svc.RewriteLink(ctx, "alice", page.ID, 5, "https://new.example"); !errors.Is(err, ErrLinkIndexOutOfRange) {
		t.Fatalf("out of range err = %v", err)
	}
	if err := svc.RewriteLink(ctx, "alice", page.ID, -1, "https://new.example"); !errors.Is(err, ErrLinkIndexOutOfRange) {
		t.Fatalf("negative index err = %v", err)
	}
	if err := svc.RewriteLink(ctx, "alice", page.ID, 1, "not a href"); !errors.Is(err, ErrInvalidHref) {
		t.Fatalf("bad href err = %v", err)
	}

	if err := svc.RewriteLink(ctx, "alice", page.ID, 1, "https://mine.example/checkout"); err != nil {
		t.Fatalf("RewriteLink: %v", err)
	}
	links, _ = svc.ListLinks(ctx, "alice", page.ID)
	if links[1].Href != "https://mine.example/checkout" {
		t.Errorf("href not rewritten: %+v", links[1])
	}
	if links[0].Href != "/product/1" {
		t.Errorf("wrong anchor touched: %+v", links[0])
	}
	if links[1].Text != "Buy now" {
		t.Errorf("anchor text changed: %+v", links[1])
	}
}

func TestReplaceHTMLIsVerbatim(t *testing.T) {
	up := newUpstream(basePage)
	defer up.srv.Close()
	svc := newTestService(t)
	ctx := context.Background()

	page, err := svc.Clone(ctx, "alice", up.srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	replacement := "<html><body><h1>mine now</h1></body></html>"
	if err := svc.ReplaceHTML(ctx, "alice", page.ID, replacement); err != nil {
		t.Fatalf("ReplaceHTML: %v", err)
	}
	if got := readArtifact(t, svc, page.ID); got != replacement {
		t.Errorf("artifact = %q, want exact replacement", got)
	}
}

func TestRefreshReappliesRegistryState(t *testing.T) {
	up := newUpstream(basePage)
	defer up.srv.Close()
	svc := newTestService(t)
	ctx := context.Background()

	page, err := svc.Clone(ctx, "alice", up.srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.InjectPixel(ctx, "alice", page.ID, testPixel); err != nil {
		t.Fatal(err)
	}
	js := `<script>track("keep-me");</script>`
	if _, err := svc.AddScript(ctx, "alice", page.ID, js, LocationBody); err != nil {
		t.Fatal(err)
	}
	// A manual edit that is not registry state.
	if err := svc.RewriteLink(ctx, "alice", page.ID, 0, "https://edited.example"); err != nil {
		t.Fatal(err)
	}

	up.set(`<html><head><title>Shop v2</title></head><body><a href="/product/1">Product One</a><p>fresh</p></body></html>`)
	if err := svc.Refresh(ctx, "alice", page.ID); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	markup := readArtifact(t, svc, page.ID)
	if !strings.Contains(markup, "<title>Shop v2</title>") || !strings.Contains(markup, "<p>fresh</p>") {
		t.Error("refresh did not pick up new source markup")
	}
	if !strings.Contains(markup, "fbq('init', '"+testPixel+"')") {
		t.Error("pixel not re-applied on refresh")
	}
	if !strings.Contains(markup, js) {
		t.Error("script not re-applied on refresh")
	}
	if strings.Contains(markup, "edited.example") {
		t.Error("manual link edit survived refresh")
	}
}

func TestConcurrentScriptAdds(t *testing.T) {
	up := newUpstream(basePage)
	defer up.srv.Close()
	svc := newTestService(t)
	ctx := context.Background()

	page, err := svc.Clone(ctx, "alice", up.srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			js := fmt.Sprintf(`<script>track(%d);</script>`, i)
			_, errs[i] = svc.AddScript(ctx, "alice", page.ID, js, LocationBody)
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("AddScript %d: %v", i, err)
		}
	}

	// Every block survived the interleaved read-modify-write cycles.
	markup := readArtifact(t, svc, page.ID)
	for i := 0; i < n; i++ {
		js := fmt.Sprintf(`<script>track(%d);</script>`, i)
		if !strings.Contains(markup, js) {
			t.Errorf("script %d lost under concurrent adds", i)
		}
	}
	got, _ := svc.Get(ctx, "alice", page.ID)
	if len(got.Scripts) != n {
		t.Errorf("registry tracks %d scripts, want %d", len(got.Scripts), n)
	}
}

func TestConcurrentAddScriptAndRefresh(t *testing.T) {
	up := newUpstream(basePage)
	defer up.srv.Close()
	svc := newTestService(t)
	ctx := context.Background()

	// Whichever side wins the clone lock, a script committed to the
	// registry must end up in the artifact: either AddScript appends it
	// after the rebuild, or Refresh re-applies it from the record.
	for round := 0; round < 3; round++ {
		page, err := svc.Clone(ctx, "alice", up.srv.URL)
		if err != nil {
			t.Fatal(err)
		}
		js := fmt.Sprintf(`<script>track("round-%d");</script>`, round)

		var wg sync.WaitGroup
		var addErr, refreshErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, addErr = svc.AddScript(ctx, "alice", page.ID, js, LocationBody)
		}()
		go func() {
			defer wg.Done()
			refreshErr = svc.Refresh(ctx, "alice", page.ID)
		}()
		wg.Wait()
		if addErr != nil || refreshErr != nil {
			t.Fatalf("round %d: add=%v refresh=%v", round, addErr, refreshErr)
		}

		got, _ := svc.Get(ctx, "alice", page.ID)
		if len(got.Scripts) != 1 {
			t.Fatalf("round %d: registry scripts = %+v", round, got.Scripts)
		}
		if markup := readArtifact(t, svc, page.ID); !strings.Contains(markup, js) {
			t.Errorf("round %d: tracked script missing from artifact", round)
		}
	}
}

func TestListPurgesMissingArtifacts(t *testing.T) {
	up := newUpstream(basePage)
	defer up.srv.Close()
	svc := newTestService(t)
	ctx := context.Background()

	keep, err := svc.Clone(ctx, "alice", up.srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	lost, err := svc.Clone(ctx, "alice", up.srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	// Simulate external artifact loss.
	path, _ := svc.ArtifactPath(lost.ID)
	if err := os.RemoveAll(filepath.Dir(path)); err != nil {
		t.Fatal(err)
	}

	pages, err := svc.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pages) != 1 || pages[0].ID != keep.ID {
		t.Fatalf("List = %+v", pages)
	}
	// The orphan record is gone, not just hidden.
	if _, err := svc.Get(ctx, "alice", lost.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("purged clone still resolvable: %v", err)
	}
}

func TestStatusTracksArtifact(t *testing.T) {
	up := newUpstream(basePage)
	defer up.srv.Close()
	svc := newTestService(t)
	ctx := context.Background()

	page, err := svc.Clone(ctx, "alice", up.srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if st, err := svc.Status(ctx, "alice", page.ID); err != nil || st != StatusActive {
		t.Fatalf("Status = (%q, %v)", st, err)
	}

	path, _ := svc.ArtifactPath(page.ID)
	os.RemoveAll(filepath.Dir(path))
	if st, err := svc.Status(ctx, "alice", page.ID); err != nil || st != StatusInactive {
		t.Fatalf("Status after loss = (%q, %v)", st, err)
	}

	if _, err := svc.Status(ctx, "alice", "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Status of absent clone = %v", err)
	}
}

func TestOwnershipIsolation(t *testing.T) {
	up := newUpstream(basePage)
	defer up.srv.Close()
	svc := newTestService(t)
	ctx := context.Background()

	page, err := svc.Clone(ctx, "alice", up.srv.URL)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Get(ctx, "mallory", page.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-owner Get = %v", err)
	}
	if err := svc.Delete(ctx, "mallory", page.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-owner Delete = %v", err)
	}
	if err := svc.InjectPixel(ctx, "mallory", page.ID, testPixel); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-owner InjectPixel = %v", err)
	}
	if _, err := svc.ListLinks(ctx, "mallory", page.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-owner ListLinks = %v", err)
	}

	// The rightful owner is unaffected.
	if _, err := svc.Get(ctx, "alice", page.ID); err != nil {
		t.Errorf("owner Get after probes: %v", err)
	}
}

func TestIncrementViews(t *testing.T) {
	up := newUpstream(basePage)
	defer up.srv.Close()
	svc := newTestService(t)
	ctx := context.Background()

	page, err := svc.Clone(ctx, "alice", up.srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	svc.IncrementViews(ctx, page.ID)
	svc.IncrementViews(ctx, page.ID)

	got, _ := svc.Get(ctx, "alice", page.ID)
	if got.ViewCount != 2 {
		t.Errorf("ViewCount = %d, want 2", got.ViewCount)
	}
}
