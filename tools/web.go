package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/martinemde/astra/agentloop"
)

const (
	defaultFetchTimeout = 30 // seconds
	defaultCrawlTimeout = 15 // seconds
	defaultCrawlPages   = 10
	maxFetchBytes       = 5 * 1024 * 1024
)

// WebTools returns http_fetch, html_readable and crawl_links.
func WebTools(env *Environment) []agentloop.Tool {
	return []agentloop.Tool{
		agentloop.NewFuncTool("http_fetch", "HTTP GET fetch raw HTML/text.",
			[]agentloop.Parameter{
				{Name: "url", Type: agentloop.ParamString, Required: true},
				{Name: "timeout", Type: agentloop.ParamInteger, Description: "Seconds. Default: 30."},
			},
			func(ctx context.Context, args map[string]any) (string, error) {
				target, _ := agentloop.StringArg(args, "url")
				timeout := agentloop.IntArgOr(args, "timeout", defaultFetchTimeout)
				return env.Fetch(ctx, target, seconds(timeout, defaultFetchTimeout))
			}),

		agentloop.NewFuncTool("html_readable", "Extract readable text from HTML.",
			[]agentloop.Parameter{
				{Name: "html", Type: agentloop.ParamString, Required: true},
				{Name: "url", Type: agentloop.ParamString, Description: "Source URL of the page, if known."},
			},
			func(ctx context.Context, args map[string]any) (string, error) {
				raw, _ := agentloop.StringArg(args, "html")
				return ExtractReadable(raw)
			}),

		agentloop.NewFuncTool("crawl_links", "Same-domain depth-1 link collector.",
			[]agentloop.Parameter{
				{Name: "url", Type: agentloop.ParamString, Required: true},
				{Name: "max_pages", Type: agentloop.ParamInteger, Description: "Default: 10."},
				{Name: "timeout", Type: agentloop.ParamInteger, Description: "Seconds. Default: 15."},
			},
			func(ctx context.Context, args map[string]any) (string, error) {
				target, _ := agentloop.StringArg(args, "url")
				maxPages := agentloop.IntArgOr(args, "max_pages", defaultCrawlPages)
				timeout := agentloop.IntArgOr(args, "timeout", defaultCrawlTimeout)
				page, err := env.Fetch(ctx, target, seconds(timeout, defaultCrawlTimeout))
				if err != nil {
					return "", err
				}
				links, err := SameDomainLinks(target, page, maxPages)
				if err != nil {
					return "", err
				}
				return strings.Join(links, "\n"), nil
			}),
	}
}

func seconds(n, def int) time.Duration {
	if n <= 0 {
		n = def
	}
	return time.Duration(n) * time.Second
}

// Fetch performs a GET request and returns the body as text. Non-2xx
// responses are errors.
func (e *Environment) Fetch(ctx context.Context, target string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("HTTP %d from %s", resp.StatusCode, target)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	return strings.ToValidUTF8(string(body), ""), nil
}

// skippedElements carry no readable content.
var skippedElements = map[string]bool{
	"script": true, "style": true, "nav": true, "footer": true,
	"header": true, "iframe": true, "noscript": true, "template": true,
}

// blockElements start a new line of text.
var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true,
	"br": true, "li": true, "tr": true, "pre": true, "blockquote": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// ExtractReadable returns the page title followed by the visible text of an
// HTML document, one block per line.
func ExtractReadable(raw string) (string, error) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var title string
	var lines []string
	var current strings.Builder
	flush := func() {
		if text := strings.Join(strings.Fields(current.String()), " "); text != "" {
			lines = append(lines, text)
		}
		current.Reset()
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.Data == "title" {
				title = strings.TrimSpace(textContent(n))
				return
			}
			if skippedElements[n.Data] {
				return
			}
			if blockElements[n.Data] {
				flush()
			}
		}
		if n.Type == html.TextNode {
			current.WriteString(n.Data)
			current.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			flush()
		}
	}
	walk(doc)
	flush()

	body := strings.Join(lines, "\n")
	return strings.TrimSpace(title + "\n\n" + body), nil
}

// SameDomainLinks returns up to maxLinks distinct absolute links found in
// page that stay on pageURL's scheme and host, in document order.
func SameDomainLinks(pageURL, page string, maxLinks int) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	if maxLinks <= 0 {
		maxLinks = defaultCrawlPages
	}

	seen := make(map[string]bool)
	var links []string
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href := attr(n, "href"); href != "" {
				if ref, err := base.Parse(href); err == nil &&
					ref.Scheme == base.Scheme && ref.Host == base.Host {
					link := ref.String()
					if !seen[link] {
						seen[link] = true
						links = append(links, link)
						if len(links) >= maxLinks {
							return false
						}
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(doc)
	return links, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
