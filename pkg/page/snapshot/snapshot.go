// Package snapshot implements page.Page over saved HTML documents.
//
// A snapshot holds one or more renders of the timeline in scroll order. Each
// ScrollToBottom reveals the next render, so the collector sees the same
// appending feed it would see in a live browser; once the last render is
// showing, the scroll height stops changing.
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/PuerkitoBio/goquery"

	errs "bmexport/pkg/errors"
	"bmexport/pkg/page"
)

// heightPerRender is the synthetic scroll extent each render adds
const heightPerRender = 1000

var (
	_ page.Page = (*Page)(nil)
	_ page.Node = (*Node)(nil)
)

// Page is an offline page backed by goquery documents
type Page struct {
	renders []*goquery.Document
	current int
	client  *http.Client
}

// Option configures a snapshot Page
type Option func(*Page)

// WithHTTPClient sets the client used by Fetch
func WithHTTPClient(client *http.Client) Option {
	return func(p *Page) {
		p.client = client
	}
}

// New parses each HTML source as one render of the feed
func New(sources [][]byte, opts ...Option) (*Page, error) {
	if len(sources) == 0 {
		return nil, errs.New(errs.ErrorTypeDriver, "snapshot needs at least one document")
	}

	p := &Page{client: &http.Client{Timeout: 30 * time.Second}}
	for i, src := range sources {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(src))
		if err != nil {
			return nil, errs.Wrap(err, errs.ErrorTypeDriver, fmt.Sprintf("can't parse render %d", i+1))
		}
		p.renders = append(p.renders, doc)
	}

	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Open reads the given HTML files as consecutive renders
func Open(paths []string, opts ...Option) (*Page, error) {
	var sources [][]byte
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.Wrap(err, errs.ErrorTypeDriver, "can't read snapshot "+path)
		}
		sources = append(sources, data)
	}
	return New(sources, opts...)
}

func (p *Page) document() *goquery.Document {
	return p.renders[p.current]
}

// QueryAll matches selector against the currently showing render
func (p *Page) QueryAll(ctx context.Context, selector string) ([]page.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return wrapSelection(p.document().Find(selector)), nil
}

// Navigate is a no-op; a snapshot is already loaded
func (p *Page) Navigate(ctx context.Context, url string, mode page.WaitMode) error {
	return ctx.Err()
}

// WaitForSelector succeeds if the current render contains selector
func (p *Page) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.document().Find(selector).Length() == 0 {
		return errs.New(errs.ErrorTypeNavigation, fmt.Sprintf("selector %q not present in snapshot", selector))
	}
	return nil
}

// WaitForTimeout sleeps for d
func (p *Page) WaitForTimeout(ctx context.Context, d time.Duration) error {
	return page.Sleep(ctx, d)
}

// ScrollToBottom reveals the next render, if any
func (p *Page) ScrollToBottom(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.current < len(p.renders)-1 {
		p.current++
	}
	return nil
}

// ScrollHeight grows with every revealed render
func (p *Page) ScrollHeight(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return int64(p.current+1) * heightPerRender, nil
}

// Fetch downloads url over plain HTTP
func (p *Page) Fetch(ctx context.Context, url string) (*page.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrorTypeFetch, "can't create request for "+url)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrorTypeFetch, "request failed for "+url)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrorTypeFetch, "can't read body of "+url)
	}

	return &page.Response{Status: resp.StatusCode, Body: body}, nil
}

// Close releases nothing; it exists to satisfy page.Page
func (p *Page) Close() error {
	return nil
}

// Node is one element of a snapshot
type Node struct {
	sel *goquery.Selection
}

func wrapSelection(sel *goquery.Selection) []page.Node {
	nodes := make([]page.Node, 0, sel.Length())
	sel.Each(func(i int, s *goquery.Selection) {
		nodes = append(nodes, &Node{sel: s})
	})
	return nodes
}

// QueryAll matches selector against the element's descendants
func (n *Node) QueryAll(ctx context.Context, selector string) ([]page.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return wrapSelection(n.sel.Find(selector)), nil
}

// Attribute returns the attribute value and whether it is set
func (n *Node) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	val, ok := n.sel.Attr(name)
	return val, ok, nil
}

// InnerText returns the element's text laid out line by line
func (n *Node) InnerText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(n.sel.Nodes) == 0 {
		return "", nil
	}
	return innerText(n.sel.Nodes[0]), nil
}
