package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"aidigest/internal/ports"
)

const (
	defaultTimeout = 15 * time.Second

	// maxBodyBytes caps how much of an article page is read; pages past
	// this size carry no additional readable text worth analyzing.
	maxBodyBytes = 10 << 20
)

// ErrNoContent means the page was fetched but yielded no readable text.
var ErrNoContent = errors.New("no extractable content")

// Extractor fetches article pages and strips boilerplate markup.
type Extractor struct {
	client    *http.Client
	userAgent string
}

var _ ports.Extractor = (*Extractor)(nil)

// NewExtractor wires an HTTP client; a nil client gets a bounded timeout.
func NewExtractor(client *http.Client, userAgent string) *Extractor {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Extractor{client: client, userAgent: userAgent}
}

// Extract performs the page GET and returns the primary readable text.
// Network failure, a non-2xx status, or an empty extraction all fail the
// entry; the caller skips it and continues the run.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("page returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read page body: %w", err)
	}

	text := e.readableText(body, pageURL)
	if text == "" {
		text = paragraphText(body)
	}
	if text == "" {
		return "", ErrNoContent
	}

	return text, nil
}

func (e *Extractor) readableText(body []byte, pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		parsed = nil
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(article.TextContent)
}

// paragraphText is the fallback for pages readability gives up on:
// harvest paragraph nodes directly and join whatever text they carry.
func paragraphText(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	doc.Find("script, style, nav, footer, aside").Remove()

	var parts []string
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		if txt := strings.TrimSpace(sel.Text()); txt != "" {
			parts = append(parts, txt)
		}
	})

	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}
