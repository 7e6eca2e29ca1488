// Package collector drives the bookmarks timeline: it scrolls the feed,
// extracts the rendered posts and decides when the feed is exhausted.
package collector

import (
	"context"

	"bmexport/pkg/checkpoint"
	"bmexport/pkg/config"
	errs "bmexport/pkg/errors"
	"bmexport/pkg/logger"
	"bmexport/pkg/models"
	"bmexport/pkg/page"
)

// PostExtractor reads every post currently rendered on a page
type PostExtractor interface {
	ExtractAll(ctx context.Context, q page.Querier) ([]*models.Post, error)
}

// Stats summarizes a collection run
type Stats struct {
	Iterations         int `json:"iterations"`
	Unique             int `json:"unique"`
	DuplicatesSkipped  int `json:"duplicates_skipped"`
	Checkpoints        int `json:"checkpoints"`
	FailedCheckpoints  int `json:"failed_checkpoints"`
	UnchangedHeights   int `json:"unchanged_heights"`
	IterationsNoNewIDs int `json:"iterations_no_new_ids"`
}

// Progress is the state of the loop after one iteration
type Progress struct {
	Iteration   int
	Unique      int
	New         int
	NoProgress  int
	Retries     int
	Checkpoints int
	Done        bool
}

// ProgressFunc receives Progress after every iteration
type ProgressFunc func(Progress)

// Collector accumulates unique posts from an appending feed.
//
// A single no-progress counter is shared by two signals: an iteration that
// adds no new post, and a scroll that leaves the document height unchanged.
// New posts reset it. Collection stops once the counter reaches the retry
// threshold, which is checked right after the new-posts signal.
type Collector struct {
	page      page.Page
	extractor PostExtractor
	flusher   checkpoint.Flusher
	policy    *checkpoint.Policy
	config    *config.Config
	logger    logger.Logger

	seen       map[string]bool
	posts      []*models.Post
	noProgress int
	lastHeight int64
	stats      Stats
	onProgress ProgressFunc
}

// New creates a Collector. flusher may be nil to disable checkpoints.
func New(p page.Page, extractor PostExtractor, flusher checkpoint.Flusher, cfg *config.Config, log logger.Logger) *Collector {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	every := cfg.CheckpointEvery
	if flusher == nil {
		every = 0
	}

	return &Collector{
		page:      p,
		extractor: extractor,
		flusher:   flusher,
		policy:    checkpoint.NewPolicy(every),
		config:    cfg,
		logger:    log,
		seen:      make(map[string]bool),
	}
}

// OnProgress registers fn to be called after every iteration, on the
// collecting goroutine
func (c *Collector) OnProgress(fn ProgressFunc) {
	c.onProgress = fn
}

// Run collects until the feed stops producing new posts. The returned slice
// is in first-seen order. On error it still holds everything collected so far.
func (c *Collector) Run(ctx context.Context) ([]*models.Post, error) {
	retries := c.config.ScrollRetries
	if retries < 1 {
		retries = 1
	}

	c.logger.InfoWithFields("Starting to collect bookmarks", map[string]interface{}{
		"scroll_retries":  retries,
		"scroll_delay_ms": c.config.ScrollDelayMs,
	})

	for {
		if err := ctx.Err(); err != nil {
			return c.Posts(), err
		}
		c.stats.Iterations++

		rendered, err := c.extractor.ExtractAll(ctx, c.page)
		if err != nil {
			return c.Posts(), err
		}

		added := c.add(rendered)
		c.logger.InfoWithFields("Collected unique posts so far", map[string]interface{}{
			"unique":    len(c.posts),
			"new":       added,
			"iteration": c.stats.Iterations,
		})

		if added == 0 {
			c.stats.IterationsNoNewIDs++
			c.noProgress++
			if c.noProgress >= retries {
				c.logger.InfoWithFields("No new posts found after multiple scrolls, assuming all bookmarks collected", map[string]interface{}{
					"unique":     len(c.posts),
					"iterations": c.stats.Iterations,
				})
				c.report(added, retries, true)
				break
			}
		} else {
			c.noProgress = 0
		}

		if err := c.scroll(ctx); err != nil {
			return c.Posts(), err
		}

		c.checkpoint(ctx)
		c.report(added, retries, false)
	}

	return c.Posts(), nil
}

func (c *Collector) report(added, retries int, done bool) {
	if c.onProgress == nil {
		return
	}
	c.onProgress(Progress{
		Iteration:   c.stats.Iterations,
		Unique:      len(c.posts),
		New:         added,
		NoProgress:  c.noProgress,
		Retries:     retries,
		Checkpoints: c.stats.Checkpoints,
		Done:        done,
	})
}

// add records posts whose ID has not been seen and returns how many were new
func (c *Collector) add(rendered []*models.Post) int {
	added := 0
	for _, post := range rendered {
		if post == nil || post.ID == "" {
			continue
		}
		if c.seen[post.ID] {
			c.stats.DuplicatesSkipped++
			continue
		}
		c.seen[post.ID] = true
		c.posts = append(c.posts, post)
		added++
	}
	c.stats.Unique = len(c.posts)
	return added
}

// scroll moves to the bottom, waits for the feed to settle and counts an
// unchanged document height as another iteration without progress
func (c *Collector) scroll(ctx context.Context) error {
	if err := c.page.ScrollToBottom(ctx); err != nil {
		return errs.Wrap(err, errs.ErrorTypeDriver, "scroll failed")
	}
	if err := c.page.WaitForTimeout(ctx, c.config.ScrollDelay()); err != nil {
		return err
	}
	height, err := c.page.ScrollHeight(ctx)
	if err != nil {
		return errs.Wrap(err, errs.ErrorTypeDriver, "failed to read scroll height")
	}

	if height == c.lastHeight {
		c.stats.UnchangedHeights++
		c.noProgress++
		c.logger.DebugWithFields("Scroll height unchanged", map[string]interface{}{
			"height":      height,
			"no_progress": c.noProgress,
		})
	}
	c.lastHeight = height
	return nil
}

func (c *Collector) checkpoint(ctx context.Context) {
	if !c.policy.Due(len(c.posts)) {
		return
	}

	c.logger.InfoWithFields("Saving intermediate progress", map[string]interface{}{
		"unique": len(c.posts),
	})
	if err := c.flusher.Flush(ctx, c.Posts()); err != nil {
		c.stats.FailedCheckpoints++
		c.logger.WithError(err).Error("Failed to save intermediate progress")
		return
	}
	c.stats.Checkpoints++
}

// Posts returns a copy of the collected posts in first-seen order
func (c *Collector) Posts() []*models.Post {
	posts := make([]*models.Post, len(c.posts))
	copy(posts, c.posts)
	return posts
}

// Stats returns counters for the run so far
func (c *Collector) Stats() Stats {
	return c.stats
}
