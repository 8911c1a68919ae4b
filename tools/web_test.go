package tools

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/martinemde/astra/agentloop"
)

const samplePage = `<!doctype html>
<html>
<head><title> Sample Page </title><style>body { color: red }</style></head>
<body>
<nav><a href="/nav">Navigation</a></nav>
<h1>Heading</h1>
<p>First   paragraph with <b>bold</b> text.</p>
<script>alert("hidden")</script>
<div>Second block</div>
<a href="/a">A</a>
<a href="b?x=1">B</a>
<a href="/a">A again</a>
<a href="https://elsewhere.example/c">External</a>
<a href="mailto:someone@example.com">Mail</a>
</body>
</html>`

func TestExtractReadable(t *testing.T) {
	got, err := ExtractReadable(samplePage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(got, "Sample Page\n\n") {
		t.Errorf("expected title first, got %q", got)
	}
	for _, want := range []string{"Heading", "First paragraph with bold text.", "Second block"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}
	for _, hidden := range []string{"alert", "color: red", "Navigation"} {
		if strings.Contains(got, hidden) {
			t.Errorf("did not expect %q in %q", hidden, got)
		}
	}
}

func TestExtractReadableWithoutTitle(t *testing.T) {
	got, err := ExtractReadable("<p>just text</p>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "just text" {
		t.Errorf("expected %q, got %q", "just text", got)
	}
}

func TestSameDomainLinks(t *testing.T) {
	links, err := SameDomainLinks("https://site.example/dir/page", samplePage, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		"https://site.example/nav",
		"https://site.example/a",
		"https://site.example/dir/b?x=1",
	}
	if strings.Join(links, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, links)
	}

	links, _ = SameDomainLinks("https://site.example/", samplePage, 2)
	if len(links) != 2 {
		t.Errorf("expected max 2 links, got %v", links)
	}
}

func TestWebToolsAgainstServer(t *testing.T) {
	var userAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.UserAgent()
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(samplePage))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	registry := agentloop.NewToolRegistry()
	registry.RegisterAll(WebTools(NewEnvironment(t.TempDir(), WithHTTPClient(srv.Client())))...)

	page := mustOK(t, call(t, registry, "http_fetch", map[string]any{"url": srv.URL + "/"}))
	if page != samplePage {
		t.Errorf("unexpected body %q", page)
	}
	if userAgent != UserAgent {
		t.Errorf("expected user agent %q, got %q", UserAgent, userAgent)
	}

	o := call(t, registry, "http_fetch", map[string]any{"url": srv.URL + "/missing"})
	if !o.IsError() || !strings.Contains(o.Message, "HTTP 404") {
		t.Errorf("expected 404 error, got %+v", o)
	}

	links := mustOK(t, call(t, registry, "crawl_links", map[string]any{"url": srv.URL + "/", "max_pages": 1}))
	if links != srv.URL+"/nav" {
		t.Errorf("unexpected links %q", links)
	}

	text := mustOK(t, call(t, registry, "html_readable", map[string]any{"html": page}))
	if !strings.HasPrefix(text, "Sample Page") {
		t.Errorf("unexpected readable text %q", text)
	}
}
