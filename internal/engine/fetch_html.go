package engine

import (
	"context"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
)

// FetchJobPage downloads a job posting and extracts its main content as
// markdown, for enriching the AI context before a task run. Tries a plain
// HTTP fetch first, then the fingerprinted BrowserClient for boards that
// block non-browser TLS, then falls back to regex stripping.
func FetchJobPage(ctx context.Context, rawURL string) (title, content string, err error) {
	metrics.FetchRequests.Add(1)
	defer func() {
		if err != nil {
			metrics.FetchErrors.Add(1)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout)
	defer cancel()

	body, err := fetchBody(ctx, rawURL)
	if err != nil {
		return "", "", err
	}
	return extractContent(body)
}

// fetchBody gets the raw page bytes, preferring the plain client.
func fetchBody(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := fetchWithRetry(ctx, rawURL)
	if err == nil {
		defer resp.Body.Close()
		body, readErr := readResponseBody(resp)
		if readErr == nil {
			return body, nil
		}
		err = readErr
	}

	// Bot-walled boards reject plain clients; retry with Chrome TLS fingerprint.
	if cfg.BrowserClient != nil {
		body, status, bErr := cfg.BrowserClient.Do("GET", rawURL, ChromeHeaders(), nil)
		if bErr == nil && status >= 200 && status < 300 {
			return body, nil
		}
	}
	return nil, err
}

// extractContent pulls the main text out of a job page and converts it to
// markdown.
func extractContent(body []byte) (title, content string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return extractWithRegex(string(body))
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		doc.Find("meta[property='og:title']").Each(func(i int, s *goquery.Selection) {
			if title == "" {
				title, _ = s.Attr("content")
			}
		})
	}

	removeSelectors := []string{
		"script", "style", "noscript", "iframe", "svg",
		"header", "footer", "nav", "aside",
		".advertisement", ".ad", ".sidebar", ".cookie-banner",
		"[role=navigation]", "[role=banner]", "[role=contentinfo]",
	}
	doc.Find(strings.Join(removeSelectors, ", ")).Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	contentSel := doc.Find("article, main, .content, .job-description, .posting, #content").First()
	if contentSel.Length() == 0 {
		contentSel = doc.Find("body")
	}

	html, err := goquery.OuterHtml(contentSel)
	if err != nil {
		return extractWithRegex(string(body))
	}

	md, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		md = contentSel.Text()
	}
	content = normalizeWhitespace(md)
	if len(content) > cfg.MaxContentChars {
		content = content[:cfg.MaxContentChars] + "..."
	}
	return title, content, nil
}

// extractWithRegex strips HTML by regex when goquery can't parse the page.
func extractWithRegex(html string) (title, content string, err error) {
	titleRe := regexp.MustCompile(`(?i)<title[^>]*>([^<]+)</title>`)
	if m := titleRe.FindStringSubmatch(html); len(m) > 1 {
		title = strings.TrimSpace(m[1])
	}

	for _, tag := range []string{"script", "style", "noscript", "header", "footer", "nav", "aside", "iframe"} {
		re := regexp.MustCompile(`(?is)<` + tag + `[^>]*>.*?</` + tag + `>`)
		html = re.ReplaceAllString(html, "")
	}
	tagRe := regexp.MustCompile(`(?s)<[^>]+>`)
	content = normalizeWhitespace(tagRe.ReplaceAllString(html, " "))
	if len(content) > cfg.MaxContentChars {
		content = content[:cfg.MaxContentChars] + "..."
	}
	return title, content, nil
}

var spaceRe = regexp.MustCompile(`[ \t]+`)
var blankRe = regexp.MustCompile(`\n{3,}`)

func normalizeWhitespace(s string) string {
	s = spaceRe.ReplaceAllString(s, " ")
	s = blankRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
