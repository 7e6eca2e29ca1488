package collector

import (
	"context"
	"strings"
	"time"

	"bmexport/pkg/config"
	errs "bmexport/pkg/errors"
	"bmexport/pkg/extractor"
	"bmexport/pkg/logger"
	"bmexport/pkg/page"
)

const (
	// loggedInSelector matches the primary navigation or the home timeline
	loggedInSelector = `nav[aria-label="Primary"], [aria-label="Timeline: Your Home Timeline"]`

	bookmarksTimeout = 30 * time.Second
)

// Session performs the navigation steps that precede collection
type Session struct {
	page         page.Page
	baseURL      string
	loginTimeout time.Duration
	logger       logger.Logger
}

// NewSession creates a Session for the site configured in cfg
func NewSession(p page.Page, cfg *config.Config, log logger.Logger) *Session {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Session{
		page:         p,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		loginTimeout: cfg.LoginTimeout,
		logger:       log,
	}
}

// Login opens the login page and waits for the user to sign in by hand.
// Exceeding the login timeout is fatal.
func (s *Session) Login(ctx context.Context) error {
	url := s.baseURL + "/login"
	s.logger.InfoWithFields("Navigating to login page", map[string]interface{}{
		"url": url,
	})
	if err := s.page.Navigate(ctx, url, page.WaitNetworkIdle); err != nil {
		return errs.Wrap(err, errs.ErrorTypeNavigation, "can't open login page")
	}

	s.logger.InfoWithFields("Please log in manually in the browser window; export continues once the home timeline is visible", map[string]interface{}{
		"timeout": s.loginTimeout.String(),
	})

	if err := s.page.WaitForSelector(ctx, loggedInSelector, s.loginTimeout); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.WithError(err).Error("Login timeout, make sure you are logged in and on the home page")
		return errs.Wrap(err, errs.ErrorTypeLoginTimeout, "login timed out after "+s.loginTimeout.String())
	}

	s.logger.Info("Login successful, proceeding with bookmark export")
	return nil
}

// OpenBookmarks navigates to the bookmarks timeline and waits for the first post
func (s *Session) OpenBookmarks(ctx context.Context) error {
	url := s.baseURL + "/i/bookmarks"
	s.logger.InfoWithFields("Navigating to bookmarks", map[string]interface{}{
		"url": url,
	})
	if err := s.page.Navigate(ctx, url, page.WaitNetworkIdle); err != nil {
		return errs.Wrap(err, errs.ErrorTypeNavigation, "can't open bookmarks")
	}

	if err := s.page.WaitForSelector(ctx, extractor.PostSelector, bookmarksTimeout); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errs.Wrap(err, errs.ErrorTypeNavigation, "bookmarks did not load")
	}

	s.logger.Info("Bookmarks page loaded")
	return nil
}
