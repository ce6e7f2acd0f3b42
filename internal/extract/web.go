package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// fetch GETs rawURL and returns at most maxBytes of the body.
func (e *Extractor) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: invalid url: %v", ErrUnsupportedFormat, err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("%w: %s returned status %d", ErrNetwork, rawURL, resp.StatusCode)
	}
	if resp.ContentLength > e.maxBytes {
		return nil, "", fmt.Errorf("%w: %d bytes exceeds %d", ErrSizeLimitExceeded, resp.ContentLength, e.maxBytes)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: read body: %v", ErrNetwork, err)
	}
	if int64(len(body)) > e.maxBytes {
		return nil, "", fmt.Errorf("%w: response exceeds %d bytes", ErrSizeLimitExceeded, e.maxBytes)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func validateHTTPURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an http(s) url", ErrUnsupportedFormat, rawURL)
	}
	return u, nil
}

func (e *Extractor) extractWeb(ctx context.Context, rawURL string) (*Result, error) {
	u, err := validateHTTPURL(rawURL)
	if err != nil {
		return nil, err
	}
	body, contentType, err := e.fetch(ctx, u.String())
	if err != nil {
		return nil, err
	}
	if mediaType, _, _ := mime.ParseMediaType(contentType); contentType != "" &&
		mediaType != "text/html" && mediaType != "application/xhtml+xml" {
		return nil, fmt.Errorf("%w: content type %q is not HTML", ErrUnsupportedFormat, contentType)
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse HTML: %v", ErrUnsupportedFormat, err)
	}
	page := readPage(doc)
	return &Result{
		Title:   page.title,
		Content: page.text,
		Metadata: map[string]interface{}{
			"url":               u.String(),
			"domain":            u.Host,
			"extraction_method": "html",
		},
	}, nil
}

// page holds what readPage collects from an HTML document.
type page struct {
	title string
	text  string
	meta  map[string]string
}

// skipped elements never contribute visible text.
var skipped = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Noscript: true, atom.Template: true,
	atom.Nav: true, atom.Footer: true, atom.Header: true, atom.Head: true,
	atom.Svg: true, atom.Iframe: true,
}

// readPage collects the title, <meta> properties and visible text. Text comes
// from the first <article> or <main> element when it has any, else from <body>.
func readPage(doc *html.Node) page {
	p := page{meta: make(map[string]string)}
	var article, mainEl, body *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Title:
				if p.title == "" {
					p.title = strings.TrimSpace(textOf(n))
				}
			case atom.Meta:
				key := attr(n, "property")
				if key == "" {
					key = attr(n, "name")
				}
				if key != "" {
					p.meta[strings.ToLower(key)] = attr(n, "content")
				}
			case atom.Article:
				if article == nil {
					article = n
				}
			case atom.Main:
				if mainEl == nil {
					mainEl = n
				}
			case atom.Body:
				body = n
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, root := range []*html.Node{article, mainEl, body} {
		if root == nil {
			continue
		}
		if text := visibleText(root); text != "" {
			p.text = text
			break
		}
	}
	return p
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
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

// visibleText returns the text under root with one line per block and blank
// lines dropped.
func visibleText(root *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipped[n.DataAtom] {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && isBlock(n.DataAtom) {
			b.WriteByte('\n')
		}
	}
	walk(root)

	lines := strings.Split(b.String(), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Br, atom.Li, atom.Ul, atom.Ol, atom.Section, atom.Article, atom.Main,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Tr, atom.Table, atom.Blockquote,
		atom.Pre, atom.Dd, atom.Dt, atom.Figcaption:
		return true
	}
	return false
}
