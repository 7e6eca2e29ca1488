// Package chrome implements page.Page on a live Chromium instance via chromedp.
package chrome

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	errs "bmexport/pkg/errors"
	"bmexport/pkg/page"
)

var (
	_ page.Page = (*Browser)(nil)
	_ page.Node = (*Node)(nil)
)

// Options controls how the browser is launched
type Options struct {
	Headless bool
	// ProfileDir keeps cookies between runs so the manual login survives restarts
	ProfileDir string
}

// Browser is a single Chromium tab driven through the DevTools protocol
type Browser struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// Launch starts Chromium and opens one tab. Cancelling ctx tears the browser down.
func Launch(ctx context.Context, opts Options) (*Browser, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1280, 2000),
	)
	if opts.ProfileDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.ProfileDir))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// the first Run starts the browser process
	if err := chromedp.Run(tabCtx, cdppage.SetLifecycleEventsEnabled(true)); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, errs.Wrap(err, errs.ErrorTypeDriver, "failed to start browser")
	}

	return &Browser{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}, nil
}

// Deadlines for single protocol round trips. chromedp keeps retrying a query
// against a node that left the document, so every call carries one.
const (
	nodeTimeout   = 10 * time.Second
	actionTimeout = 30 * time.Second
	fetchTimeout  = 60 * time.Second
	loadTimeout   = 60 * time.Second
)

// bounded derives a context from the tab that expires after timeout and is
// also cancelled when caller is done
func bounded(tab, caller context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(tab, timeout)
	stop := context.AfterFunc(caller, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// run executes actions on the tab within timeout. The caller's cancellation
// error wins over whatever chromedp reports.
func (b *Browser) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := bounded(b.ctx, ctx, timeout)
	defer cancel()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Navigate loads url and waits for the lifecycle event matching mode
func (b *Browser) Navigate(ctx context.Context, url string, mode page.WaitMode) error {
	want := "load"
	if mode == page.WaitNetworkIdle {
		want = "networkIdle"
	}

	listenCtx, stopListening := context.WithCancel(b.ctx)
	defer stopListening()

	events := make(chan *cdppage.EventLifecycleEvent, 64)
	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		if e, ok := ev.(*cdppage.EventLifecycleEvent); ok && e.Name == want {
			select {
			case events <- e:
			default:
			}
		}
	})

	var loaderID cdp.LoaderID
	err := b.run(ctx, actionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		_, id, errText, err := cdppage.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errText != "" {
			return fmt.Errorf("page load error %s", errText)
		}
		loaderID = id
		return nil
	}))
	if err != nil {
		return errs.Wrap(err, errs.ErrorTypeNavigation, "failed to navigate to "+url)
	}

	timer := time.NewTimer(loadTimeout)
	defer timer.Stop()

	for {
		select {
		case e := <-events:
			if e.LoaderID == loaderID {
				return nil
			}
		case <-timer.C:
			return errs.New(errs.ErrorTypeNavigation, fmt.Sprintf("%s never reached %s", url, want))
		case <-ctx.Done():
			return ctx.Err()
		case <-b.ctx.Done():
			return errs.Wrap(b.ctx.Err(), errs.ErrorTypeDriver, "browser closed while loading "+url)
		}
	}
}

// WaitForSelector blocks until selector matches or timeout elapses
func (b *Browser) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if err := b.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		if ctx.Err() != nil {
			return err
		}
		return errs.Wrap(err, errs.ErrorTypeNavigation, fmt.Sprintf("selector %q did not appear", selector))
	}
	return nil
}

// WaitForTimeout sleeps for d
func (b *Browser) WaitForTimeout(ctx context.Context, d time.Duration) error {
	return page.Sleep(ctx, d)
}

// ScrollToBottom scrolls the window to the current end of the document
func (b *Browser) ScrollToBottom(ctx context.Context) error {
	var done bool
	err := b.run(ctx, actionTimeout, chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight); true`, &done))
	return errs.Wrap(err, errs.ErrorTypeDriver, "failed to scroll")
}

// ScrollHeight reports the scrollable extent of the document body
func (b *Browser) ScrollHeight(ctx context.Context) (int64, error) {
	var height int64
	if err := b.run(ctx, actionTimeout, chromedp.Evaluate(`document.body.scrollHeight`, &height)); err != nil {
		return 0, errs.Wrap(err, errs.ErrorTypeDriver, "failed to read scroll height")
	}
	return height, nil
}

// QueryAll returns every element in the document matching selector
func (b *Browser) QueryAll(ctx context.Context, selector string) ([]page.Node, error) {
	return b.queryAll(ctx, actionTimeout, selector)
}

func (b *Browser) queryAll(ctx context.Context, timeout time.Duration, selector string, opts ...chromedp.QueryOption) ([]page.Node, error) {
	var found []*cdp.Node
	opts = append([]chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}, opts...)
	if err := b.run(ctx, timeout, chromedp.Nodes(selector, &found, opts...)); err != nil {
		return nil, errs.Wrap(err, errs.ErrorTypeDriver, fmt.Sprintf("query %q failed", selector))
	}

	nodes := make([]page.Node, 0, len(found))
	for _, n := range found {
		nodes = append(nodes, &Node{browser: b, node: n})
	}
	return nodes, nil
}

// fetchScript downloads a public resource from inside the page and returns
// the status and a base64 body, so fetching never navigates away from the
// feed. The media host answers with a wildcard CORS origin, which rejects
// credentialed requests.
const fetchScript = `(async () => {
  const resp = await fetch(%s, {credentials: "omit", mode: "cors"});
  const bytes = new Uint8Array(await resp.arrayBuffer());
  let bin = "";
  for (let i = 0; i < bytes.length; i += 0x8000) {
    bin += String.fromCharCode.apply(null, bytes.subarray(i, i + 0x8000));
  }
  return {status: resp.status, body: btoa(bin)};
})()`

type fetchResult struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// Fetch retrieves url from inside the page
func (b *Browser) Fetch(ctx context.Context, url string) (*page.Response, error) {
	quoted, err := json.Marshal(url)
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrorTypeFetch, "can't encode url")
	}

	var res fetchResult
	awaitPromise := func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}
	if err := b.run(ctx, fetchTimeout, chromedp.Evaluate(fmt.Sprintf(fetchScript, quoted), &res, awaitPromise)); err != nil {
		return nil, errs.Wrap(err, errs.ErrorTypeFetch, "in-page fetch failed for "+url)
	}

	body, err := base64.StdEncoding.DecodeString(res.Body)
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrorTypeFetch, "can't decode body of "+url)
	}
	return &page.Response{Status: res.Status, Body: body}, nil
}

// Close shuts the tab and the browser process
func (b *Browser) Close() error {
	b.cancelTab()
	b.cancelAlloc()
	return nil
}

// Node is a DOM node of the live tab
type Node struct {
	browser *Browser
	node    *cdp.Node
}

// QueryAll returns descendants of the node matching selector
func (n *Node) QueryAll(ctx context.Context, selector string) ([]page.Node, error) {
	return n.browser.queryAll(ctx, nodeTimeout, selector, chromedp.FromNode(n.node))
}

// Attribute reads the attribute's current value from the live DOM
func (n *Node) Attribute(ctx context.Context, name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := n.browser.run(ctx, nodeTimeout, chromedp.AttributeValue([]cdp.NodeID{n.node.NodeID}, name, &value, &ok, chromedp.ByNodeID))
	if err != nil {
		return "", false, errs.Wrap(err, errs.ErrorTypeDriver, "failed to read attribute "+name)
	}
	return value, ok, nil
}

// InnerText returns the node's rendered text
func (n *Node) InnerText(ctx context.Context) (string, error) {
	var text string
	if err := n.browser.run(ctx, nodeTimeout, chromedp.Text([]cdp.NodeID{n.node.NodeID}, &text, chromedp.ByNodeID)); err != nil {
		return "", errs.Wrap(err, errs.ErrorTypeDriver, "failed to read text")
	}
	return text, nil
}
