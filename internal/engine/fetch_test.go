package engine

import (
	"strings"
	"testing"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Senior Go Engineer - Acme</title><style>body{color:red}</style></head>
<body>
<nav><a href="/">Home</a><a href="/jobs">Jobs</a></nav>
<main>
<h1>Senior Go Engineer</h1>
<p>Acme is hiring a backend engineer to work on distributed systems.</p>
<ul><li>5+ years Go</li><li>PostgreSQL</li></ul>
</main>
<script>trackPageView()</script>
<footer>© Acme Inc</footer>
</body>
</html>`

func TestExtractContent(t *testing.T) {
	Init(Config{MaxContentChars: 6000})

	title, content, err := extractContent([]byte(samplePage))
	if err != nil {
		t.Fatalf("extractContent error: %v", err)
	}
	if title != "Senior Go Engineer - Acme" {
		t.Errorf("title = %q", title)
	}
	if !strings.Contains(content, "distributed systems") {
		t.Errorf("content missing body text: %q", content)
	}
	if strings.Contains(content, "trackPageView") {
		t.Error("script leaked into content")
	}
	if strings.Contains(content, "© Acme Inc") {
		t.Error("footer leaked into content")
	}
	// Markdown conversion keeps list structure.
	if !strings.Contains(content, "5+ years Go") {
		t.Errorf("requirement bullet lost: %q", content)
	}
}

func TestExtractContentTruncates(t *testing.T) {
	Init(Config{MaxContentChars: 50})

	long := "<html><head><title>T</title></head><body><main>" +
		strings.Repeat("words and more words ", 50) + "</main></body></html>"
	_, content, err := extractContent([]byte(long))
	if err != nil {
		t.Fatalf("extractContent error: %v", err)
	}
	if len(content) > 50+len("...") {
		t.Errorf("content not truncated: %d chars", len(content))
	}
	if !strings.HasSuffix(content, "...") {
		t.Errorf("missing ellipsis: %q", content)
	}
}

func TestExtractWithRegex(t *testing.T) {
	Init(Config{MaxContentChars: 6000})

	title, content, err := extractWithRegex(samplePage)
	if err != nil {
		t.Fatalf("extractWithRegex error: %v", err)
	}
	if title != "Senior Go Engineer - Acme" {
		t.Errorf("title = %q", title)
	}
	if strings.Contains(content, "trackPageView") || strings.Contains(content, "color:red") {
		t.Errorf("script/style leaked: %q", content)
	}
	if !strings.Contains(content, "distributed systems") {
		t.Errorf("body text lost: %q", content)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := TruncateRunes("héllo wörld", 5, "…"); got != "héllo…" {
		t.Errorf("got %q", got)
	}
	if got := TruncateRunes("short", 100, "…"); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := TruncateRunes("anything", 0, "…"); got != "anything" {
		t.Errorf("max 0 should be a no-op, got %q", got)
	}
}
