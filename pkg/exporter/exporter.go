// Package exporter renders collected posts to paginated markdown documents.
package exporter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/h2non/filetype"

	"bmexport/pkg/config"
	errs "bmexport/pkg/errors"
	"bmexport/pkg/logger"
	"bmexport/pkg/models"
	"bmexport/pkg/page"
	"bmexport/pkg/ratelimit"
)

const exportTimeFormat = "2006-01-02 15:04:05"

var unsafeFilenameChars = regexp.MustCompile(`[?&=:]`)

// Store is where rendered documents and downloaded images end up
type Store interface {
	WriteDocument(name string, data []byte) error
	SaveImage(name string, r io.Reader) error
	HasImage(name string) bool
	ImageRelPath(name string) string
}

// Stats counts image outcomes of the last export
type Stats struct {
	ImagesSaved  int `json:"images_saved"`
	ImagesReused int `json:"images_reused"`
	ImagesFailed int `json:"images_failed"`
}

// Exporter writes the full collected list as a set of markdown files
type Exporter struct {
	postsPerFile   int
	includeImages  bool
	downloadImages bool

	store   Store
	fetcher page.Fetcher
	limiter ratelimit.Limiter
	logger  logger.Logger
	now     func() time.Time
	onFile  func(name string, posts int)

	stats Stats
}

// Option configures an Exporter
type Option func(*Exporter)

// WithClock sets the source of the export timestamp
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		e.now = now
	}
}

// OnFileWritten registers fn to be called after each document is written
func OnFileWritten(fn func(name string, posts int)) Option {
	return func(e *Exporter) {
		e.onFile = fn
	}
}

// New creates an Exporter. fetcher is only used when images are downloaded
// locally; limiter may be nil for unlimited fetching.
func New(cfg *config.Config, store Store, fetcher page.Fetcher, limiter ratelimit.Limiter, log logger.Logger, opts ...Option) *Exporter {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if limiter == nil {
		limiter = ratelimit.Unlimited()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	e := &Exporter{
		postsPerFile:   cfg.PostsPerFile,
		includeImages:  cfg.IncludeImages,
		downloadImages: cfg.IncludeImages && cfg.DownloadImagesLocally && fetcher != nil,
		store:          store,
		fetcher:        fetcher,
		limiter:        limiter,
		logger:         log,
		now:            time.Now,
	}
	if e.postsPerFile <= 0 {
		e.postsPerFile = config.DefaultConfig().PostsPerFile
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export sorts posts newest first, splits them into files of postsPerFile and
// writes every file. It rewrites the whole set each time it is called and
// returns the written filenames in order.
func (e *Exporter) Export(ctx context.Context, posts []*models.Post) ([]string, error) {
	if len(posts) == 0 {
		e.logger.Warn("No posts to save")
		return nil, nil
	}

	e.stats = Stats{}
	sorted := models.SortByTimestampDesc(posts)
	chunks := models.Chunk(sorted, e.postsPerFile)
	meta := summary{
		total:  len(sorted),
		newest: sorted[0].Date(),
		oldest: sorted[len(sorted)-1].Date(),
	}
	exportedAt := e.now().Format(exportTimeFormat)

	var filenames []string
	for i, chunk := range chunks {
		number := i + 1
		name := Filename(number, chunk)

		var buf bytes.Buffer
		writeHeader(&buf, number, exportedAt, meta, len(chunk))
		for _, post := range chunk {
			if err := e.writePost(ctx, &buf, post); err != nil {
				return filenames, err
			}
		}

		if err := e.store.WriteDocument(name, buf.Bytes()); err != nil {
			return filenames, errs.Wrap(err, errs.ErrorTypeStorage, "can't write "+name)
		}
		filenames = append(filenames, name)
		if e.onFile != nil {
			e.onFile(name, len(chunk))
		}

		e.logger.InfoWithFields("Saved posts", map[string]interface{}{
			"file":  name,
			"posts": len(chunk),
		})
	}

	if e.downloadImages {
		e.logger.InfoWithFields("Image download summary", map[string]interface{}{
			"saved":  e.stats.ImagesSaved,
			"reused": e.stats.ImagesReused,
			"failed": e.stats.ImagesFailed,
		})
	}

	return filenames, nil
}

// Flush lets the collection loop checkpoint through the exporter
func (e *Exporter) Flush(ctx context.Context, posts []*models.Post) error {
	_, err := e.Export(ctx, posts)
	return err
}

// Stats returns image counters of the last export
func (e *Exporter) Stats() Stats {
	return e.stats
}

// Filename names the number-th file after the dates of its first and last post
func Filename(number int, chunk []*models.Post) string {
	if len(chunk) == 0 {
		return fmt.Sprintf("bookmarks_%03d.md", number)
	}
	return fmt.Sprintf("bookmarks_%03d_%s_to_%s.md", number, chunk[0].Date(), chunk[len(chunk)-1].Date())
}

// LocalImageName derives the stored file name of an image: the last URL path
// segment with ?&=: replaced, prefixed by the owning post
func LocalImageName(prefix, imageURL string) string {
	segment := imageURL
	if idx := strings.LastIndex(imageURL, "/"); idx >= 0 {
		segment = imageURL[idx+1:]
	}
	return prefix + unsafeFilenameChars.ReplaceAllString(segment, "_")
}

type summary struct {
	total  int
	oldest string
	newest string
}

func writeHeader(buf *bytes.Buffer, number int, exportedAt string, meta summary, count int) {
	fmt.Fprintf(buf, "# Twitter Bookmarks - Part %d\n\n", number)
	fmt.Fprintf(buf, "*Exported on %s*\n\n", exportedAt)
	if number == 1 {
		fmt.Fprintf(buf, "**Total Bookmarks in Export:** %d\n\n", meta.total)
		fmt.Fprintf(buf, "**Overall Date Range:** %s to %s\n\n", meta.oldest, meta.newest)
	}
	fmt.Fprintf(buf, "**Tweets in this file:** %d\n\n", count)
	buf.WriteString("---\n\n")
}

func (e *Exporter) writePost(ctx context.Context, buf *bytes.Buffer, post *models.Post) error {
	fmt.Fprintf(buf, "## %s (%s)\n\n", post.AuthorName, post.AuthorHandle)
	buf.WriteString(permalink(post) + "\n\n")
	fmt.Fprintf(buf, "%s\n\n", post.Text)

	if e.includeImages && len(post.Images) > 0 {
		buf.WriteString("**Images:**\n\n")
		for _, img := range post.Images {
			ref, err := e.imageRef(ctx, post.ID+"_", img)
			if err != nil {
				return err
			}
			if ref == "" {
				fmt.Fprintf(buf, "![Image (Failed to download)](%s)\n\n", img)
			} else {
				fmt.Fprintf(buf, "![Image](%s)\n\n", ref)
			}
		}
	}

	if len(post.Videos) > 0 {
		buf.WriteString("**Videos:**\n\n")
		for _, v := range post.Videos {
			fmt.Fprintf(buf, "- [Video Link](%s)\n", v)
		}
		buf.WriteString("\n")
	}

	if post.QuotedPost != nil {
		if err := e.writeQuote(ctx, buf, post.QuotedPost, "> "); err != nil {
			return err
		}
	}

	buf.WriteString("---\n\n")
	return nil
}

// writeQuote renders a quoted post as a blockquote; each nesting level adds
// one more "> " to prefix
func (e *Exporter) writeQuote(ctx context.Context, buf *bytes.Buffer, qt *models.Post, prefix string) error {
	fmt.Fprintf(buf, "\n\n%s**Quoted Tweet:**\n", prefix)
	fmt.Fprintf(buf, "%s**%s (%s)**\n\n", prefix, qt.AuthorName, qt.AuthorHandle)
	fmt.Fprintf(buf, "%s%s\n\n", prefix, permalink(qt))

	for _, line := range strings.Split(qt.Text, "\n") {
		fmt.Fprintf(buf, "%s%s\n", prefix, line)
	}
	buf.WriteString("\n")

	if e.includeImages && len(qt.Images) > 0 {
		fmt.Fprintf(buf, "%s**Images (quoted):**\n\n", prefix)
		for _, img := range qt.Images {
			ref, err := e.imageRef(ctx, "qt_"+qt.ID+"_", img)
			if err != nil {
				return err
			}
			if ref == "" {
				fmt.Fprintf(buf, "%s![Quoted Image (Failed to download)](%s)\n\n", prefix, img)
			} else {
				fmt.Fprintf(buf, "%s![Quoted Image](%s)\n\n", prefix, ref)
			}
		}
	}

	if len(qt.Videos) > 0 {
		fmt.Fprintf(buf, "%s**Videos (quoted):**\n\n", prefix)
		for _, v := range qt.Videos {
			fmt.Fprintf(buf, "%s- [Quoted Video Link](%s)\n", prefix, v)
		}
		buf.WriteString("\n")
	}

	if qt.QuotedPost != nil {
		return e.writeQuote(ctx, buf, qt.QuotedPost, prefix+"> ")
	}
	return nil
}

func permalink(p *models.Post) string {
	if p.Timestamp == "" {
		return fmt.Sprintf("*[Link](%s)*", p.URL)
	}
	return fmt.Sprintf("*[%s](%s)*", p.FormattedTime(), p.URL)
}

// imageRef returns the reference to embed for url. With local downloads it is
// the relative path of the stored copy, or "" when the fetch failed. A
// cancelled context or a failure to store the image is returned as an error.
func (e *Exporter) imageRef(ctx context.Context, prefix, url string) (string, error) {
	if !e.downloadImages {
		return url, nil
	}

	name := LocalImageName(prefix, url)
	if e.store.HasImage(name) {
		e.stats.ImagesReused++
		return e.store.ImageRelPath(name), nil
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return "", err
	}

	if err := e.download(ctx, name, url); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errs.IsFatal(err) {
			return "", err
		}
		e.stats.ImagesFailed++
		e.logger.WithError(err).WithField("url", url).Error("Failed to download image")
		return "", nil
	}

	e.stats.ImagesSaved++
	e.logger.DebugWithFields("Downloaded image", map[string]interface{}{
		"url":  url,
		"file": name,
	})
	return e.store.ImageRelPath(name), nil
}

func (e *Exporter) download(ctx context.Context, name, url string) error {
	resp, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		return errs.Wrap(err, errs.ErrorTypeFetch, "fetch failed")
	}
	if !resp.OK() {
		return errs.New(errs.ErrorTypeFetch, fmt.Sprintf("unexpected status %d", resp.Status))
	}
	if !filetype.IsImage(resp.Body) {
		return errs.New(errs.ErrorTypeFetch, "response is not an image")
	}
	if err := e.store.SaveImage(name, bytes.NewReader(resp.Body)); err != nil {
		return errs.Wrap(err, errs.ErrorTypeStorage, "can't store image")
	}
	return nil
}
