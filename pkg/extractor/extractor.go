// Package extractor reads posts out of the rendered bookmarks timeline.
package extractor

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	errs "bmexport/pkg/errors"
	"bmexport/pkg/logger"
	"bmexport/pkg/models"
	"bmexport/pkg/page"
)

// Selectors for the rendered timeline markup
const (
	PostSelector        = `article[data-testid="tweet"]`
	permalinkSelector   = `a[href*="/status/"]`
	authorSelector      = `[data-testid="User-Name"]`
	textSelector        = `[data-testid="tweetText"]`
	timeSelector        = `time`
	imageSelector       = `img[src*="pbs.twimg.com/media"]`
	cardLinkSelector    = `[data-testid="card.wrapper"] a[href]`
	nativeVideoSelector = `video`
	quoteSelector       = `div[role="link"][tabindex="0"]`

	statusSegment = "/status/"
)

var (
	embedSelectors = []string{
		`iframe[src*="youtube.com/embed/"]`,
		`iframe[src*="player.vimeo.com/video/"]`,
	}

	videoHosts = []string{"youtu.be", "youtube.com", "vimeo.com", "dailymotion.com"}

	imageSizeParam = regexp.MustCompile(`([?&])name=\w+`)
)

// Options tunes extraction
type Options struct {
	// BaseURL is prefixed to relative permalinks
	BaseURL string
	// MaxQuoteDepth caps how many nested quote levels are followed
	MaxQuoteDepth int
}

// DefaultOptions returns the options used for the live site
func DefaultOptions() Options {
	return Options{
		BaseURL:       "https://x.com",
		MaxQuoteDepth: 1,
	}
}

// Extractor turns rendered post nodes into models.Post values
type Extractor struct {
	opts   Options
	logger logger.Logger
}

// New creates an Extractor
func New(log logger.Logger, opts Options) *Extractor {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if opts.MaxQuoteDepth < 0 {
		opts.MaxQuoteDepth = 0
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Extractor{opts: opts, logger: log}
}

// ExtractAll parses every post currently rendered under q. Nodes that fail to
// parse are logged and skipped; only a failing document query is returned.
func (e *Extractor) ExtractAll(ctx context.Context, q page.Querier) ([]*models.Post, error) {
	nodes, err := q.QueryAll(ctx, PostSelector)
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrorTypeDriver, "failed to list rendered posts")
	}

	posts := make([]*models.Post, 0, len(nodes))
	for i, node := range nodes {
		post, err := e.Extract(ctx, node)
		if err != nil {
			if ctx.Err() != nil {
				return posts, ctx.Err()
			}
			e.logger.WithError(err).WithField("index", i).Warn("Error parsing post")
			continue
		}
		if post != nil {
			posts = append(posts, post)
		}
	}
	return posts, nil
}

// Extract parses one post node. It returns nil, nil when the node has no
// status permalink, which is the normal case for ads and placeholders.
func (e *Extractor) Extract(ctx context.Context, node page.Node) (*models.Post, error) {
	return e.extract(ctx, node, 0)
}

func (e *Extractor) extract(ctx context.Context, node page.Node, depth int) (post *models.Post, err error) {
	defer func() {
		if r := recover(); r != nil {
			post = nil
			err = errs.New(errs.ErrorTypeParsing, fmt.Sprintf("panic while parsing post: %v", r))
		}
	}()

	href, err := firstAttribute(ctx, node, permalinkSelector, "href")
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrorTypeParsing, "can't read permalink")
	}
	id := statusID(href)
	if id == "" {
		return nil, nil
	}

	post = &models.Post{
		ID:  id,
		URL: e.absolute(href),
	}

	if post.AuthorName, post.AuthorHandle, err = e.author(ctx, node); err != nil {
		return nil, err
	}
	if post.Text, err = firstText(ctx, node, textSelector); err != nil {
		return nil, errs.Wrap(err, errs.ErrorTypeParsing, "can't read text")
	}
	if post.Timestamp, err = firstAttribute(ctx, node, timeSelector, "datetime"); err != nil {
		return nil, errs.Wrap(err, errs.ErrorTypeParsing, "can't read timestamp")
	}
	if post.Images, err = e.images(ctx, node); err != nil {
		return nil, err
	}
	if post.Videos, err = e.videos(ctx, node, post.URL); err != nil {
		return nil, err
	}

	if depth < e.opts.MaxQuoteDepth {
		post.QuotedPost = e.quoted(ctx, node, id, depth)
	}
	return post, nil
}

func (e *Extractor) author(ctx context.Context, node page.Node) (string, string, error) {
	name, handle := models.UnknownAuthorName, models.UnknownAuthorHandle

	block, err := page.First(ctx, node, authorSelector)
	if err != nil {
		return "", "", errs.Wrap(err, errs.ErrorTypeParsing, "can't find author block")
	}
	if block == nil {
		return name, handle, nil
	}
	text, err := block.InnerText(ctx)
	if err != nil {
		return "", "", errs.Wrap(err, errs.ErrorTypeParsing, "can't read author block")
	}

	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > 0 {
		name = lines[0]
	}
	if len(lines) > 1 {
		handle = lines[1]
	}
	return name, handle, nil
}

func (e *Extractor) images(ctx context.Context, node page.Node) ([]string, error) {
	srcs, err := allAttributes(ctx, node, imageSelector, "src")
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrorTypeParsing, "can't read images")
	}
	images := newOrderedSet()
	for _, src := range srcs {
		images.add(LargeImageURL(src))
	}
	return images.items, nil
}

// videos walks the fallback chain and stops at the first rule with results
func (e *Extractor) videos(ctx context.Context, node page.Node, permalink string) ([]string, error) {
	embeds := newOrderedSet()
	for _, sel := range embedSelectors {
		srcs, err := allAttributes(ctx, node, sel, "src")
		if err != nil {
			return nil, errs.Wrap(err, errs.ErrorTypeParsing, "can't read embedded players")
		}
		embeds.add(srcs...)
	}
	if len(embeds.items) > 0 {
		return embeds.items, nil
	}

	hrefs, err := allAttributes(ctx, node, cardLinkSelector, "href")
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrorTypeParsing, "can't read link cards")
	}
	cards := newOrderedSet()
	for _, href := range hrefs {
		if isVideoHost(href) {
			cards.add(href)
		}
	}
	if len(cards.items) > 0 {
		return cards.items, nil
	}

	native, err := page.First(ctx, node, nativeVideoSelector)
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrorTypeParsing, "can't look for native video")
	}
	if native != nil {
		return []string{permalink}, nil
	}
	return []string{}, nil
}

// quoted resolves the nested quote card. Failures only drop the quote.
func (e *Extractor) quoted(ctx context.Context, node page.Node, outerID string, depth int) *models.Post {
	container, err := page.First(ctx, node, quoteSelector)
	if err != nil {
		e.logger.WithError(err).WithField("post_id", outerID).Debug("Error looking for quote card")
		return nil
	}
	if container == nil {
		return nil
	}
	nested, err := page.First(ctx, container, PostSelector)
	if err != nil {
		e.logger.WithError(err).WithField("post_id", outerID).Debug("Error looking for quoted post")
		return nil
	}
	if nested == nil {
		return nil
	}

	quote, err := e.extract(ctx, nested, depth+1)
	if err != nil {
		e.logger.WithError(err).WithField("post_id", outerID).Warn("Error parsing quoted post")
		return nil
	}
	if quote == nil || quote.ID == outerID {
		return nil
	}
	return quote
}

func (e *Extractor) absolute(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return e.opts.BaseURL + href
}

// statusID returns the path segment after the last /status/ in href
func statusID(href string) string {
	idx := strings.LastIndex(href, statusSegment)
	if idx < 0 {
		return ""
	}
	id := href[idx+len(statusSegment):]
	if cut := strings.IndexAny(id, "?#/"); cut >= 0 {
		id = id[:cut]
	}
	return id
}

// LargeImageURL requests the large rendition of a media image
func LargeImageURL(src string) string {
	return imageSizeParam.ReplaceAllString(src, "${1}name=large")
}

func isVideoHost(href string) bool {
	for _, host := range videoHosts {
		if strings.Contains(href, host) {
			return true
		}
	}
	return false
}

func firstAttribute(ctx context.Context, q page.Querier, selector, name string) (string, error) {
	node, err := page.First(ctx, q, selector)
	if err != nil || node == nil {
		return "", err
	}
	val, _, err := node.Attribute(ctx, name)
	return val, err
}

func firstText(ctx context.Context, q page.Querier, selector string) (string, error) {
	node, err := page.First(ctx, q, selector)
	if err != nil || node == nil {
		return "", err
	}
	return node.InnerText(ctx)
}

func allAttributes(ctx context.Context, q page.Querier, selector, name string) ([]string, error) {
	nodes, err := q.QueryAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	var vals []string
	for _, n := range nodes {
		val, ok, err := n.Attribute(ctx, name)
		if err != nil {
			return nil, err
		}
		if ok && val != "" {
			vals = append(vals, val)
		}
	}
	return vals, nil
}

type orderedSet struct {
	seen  map[string]bool
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]bool), items: []string{}}
}

func (s *orderedSet) add(vals ...string) {
	for _, v := range vals {
		if !s.seen[v] {
			s.seen[v] = true
			s.items = append(s.items, v)
		}
	}
}
