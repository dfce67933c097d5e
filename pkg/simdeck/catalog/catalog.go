// Package catalog searches the document library served at /buscar.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"
)

// PageSize is the number of documents shown per page.
const PageSize = 5

// ErrUnreachable is returned when the catalog server did not answer.
var ErrUnreachable = errors.New("catalog server unreachable")

// Document is one library entry.
type Document struct {
	ID      int    `json:"id"`
	Title   string `json:"titulo"`
	Content string `json:"contenido"`
	Image   string `json:"imagen"`
}

type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Every(250*time.Millisecond), 1),
	}
}

// Search posts the query and returns the documents in server order.
func (c *Client) Search(ctx context.Context, query string) ([]Document, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() == nil {
			if _, ok := ctx.Deadline(); ok {
				return nil, fmt.Errorf("rate limiter: %w (%v)", context.DeadlineExceeded, err)
			}
		}
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/buscar", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog search failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var docs []Document
	if err := json.Unmarshal(respBody, &docs); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return docs, nil
}

// DocumentURL is the page of a single document.
func DocumentURL(baseURL string, id int) string {
	return fmt.Sprintf("%s/documento/%d", strings.TrimRight(baseURL, "/"), id)
}

// ResolveImage makes a server-relative image path absolute.
func ResolveImage(baseURL, ref string) string {
	if ref == "" || strings.Contains(ref, "://") {
		return ref
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(ref, "/")
}

// Pager walks a result list PageSize documents at a time. Pages are 1-based.
type Pager struct {
	docs []Document
	page int
}

func NewPager(docs []Document) *Pager {
	return &Pager{docs: docs, page: 1}
}

func (p *Pager) TotalPages() int {
	return (len(p.docs) + PageSize - 1) / PageSize
}

func (p *Pager) Current() int {
	return p.page
}

// Page returns the documents of the current page.
func (p *Pager) Page() []Document {
	start := (p.page - 1) * PageSize
	if start >= len(p.docs) {
		return nil
	}
	end := min(start+PageSize, len(p.docs))
	return p.docs[start:end]
}

func (p *Pager) HasPrev() bool {
	return p.page > 1
}

func (p *Pager) HasNext() bool {
	return p.page < p.TotalPages()
}

// ShowControls reports whether navigation is worth rendering.
func (p *Pager) ShowControls() bool {
	return p.TotalPages() > 1
}

func (p *Pager) Next() bool {
	if !p.HasNext() {
		return false
	}
	p.page++
	return true
}

func (p *Pager) Prev() bool {
	if !p.HasPrev() {
		return false
	}
	p.page--
	return true
}

// Go jumps to page n, clamped to the valid range.
func (p *Pager) Go(n int) {
	p.page = max(1, min(n, max(p.TotalPages(), 1)))
}

// Fold normalizes s for accent- and case-insensitive matching.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return cases.Fold().String(folded)
}

// Corpus is the built-in library used by the demo server and when the
// catalog server is unreachable.
func Corpus() []Document {
	docs := make([]Document, 6)
	for i := range docs {
		id := i + 1
		docs[i] = Document{
			ID:      id,
			Title:   fmt.Sprintf("Política y Tecnología %d", id),
			Content: fmt.Sprintf("Contenido %d...", id),
			Image:   "/static/images/scroll.png",
		}
	}
	return docs
}

// MockSearch filters the built-in corpus. Every query word must appear in
// the title or content. An empty query returns everything.
func MockSearch(query string) []Document {
	words := strings.Fields(Fold(query))
	var out []Document
	for _, d := range Corpus() {
		text := Fold(d.Title + " " + d.Content)
		match := true
		for _, w := range words {
			if !strings.Contains(text, w) {
				match = false
				break
			}
		}
		if match {
			out = append(out, d)
		}
	}
	return out
}
