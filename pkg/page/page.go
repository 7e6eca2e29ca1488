// Package page defines the browser capabilities the exporter depends on.
//
// The collector, extractor and exporter only see these interfaces. The live
// Chromium driver lives in page/chrome and an offline driver over saved HTML
// lives in page/snapshot.
package page

import (
	"context"
	"time"
)

// WaitMode selects when a navigation counts as finished
type WaitMode int

const (
	// WaitLoad waits for the load event
	WaitLoad WaitMode = iota
	// WaitNetworkIdle waits until the network has been quiet for a moment
	WaitNetworkIdle
)

// Querier finds descendant elements with a CSS selector
type Querier interface {
	QueryAll(ctx context.Context, selector string) ([]Node, error)
}

// Node is a handle to one rendered element
type Node interface {
	Querier
	// Attribute returns the attribute value and whether it is present
	Attribute(ctx context.Context, name string) (string, bool, error)
	// InnerText returns the rendered text with line breaks between blocks
	InnerText(ctx context.Context) (string, error)
}

// Response is the outcome of fetching a resource through the browser
type Response struct {
	Status int
	Body   []byte
}

// OK reports whether the status is 2xx
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// Fetcher retrieves a resource with the browser's session
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// Page is a live document the exporter drives. Calls are never issued
// concurrently; every call is a blocking point of the single collection task.
type Page interface {
	Querier
	Fetcher
	Navigate(ctx context.Context, url string, mode WaitMode) error
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	WaitForTimeout(ctx context.Context, d time.Duration) error
	ScrollToBottom(ctx context.Context) error
	ScrollHeight(ctx context.Context) (int64, error)
	Close() error
}

// First returns the first element under q matching selector, or nil
func First(ctx context.Context, q Querier, selector string) (Node, error) {
	nodes, err := q.QueryAll(ctx, selector)
	if err != nil || len(nodes) == 0 {
		return nil, err
	}
	return nodes[0], nil
}

// Sleep waits for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
