// Package browser owns the single browser session used to search the map site:
// launching Chrome through rod, opening the map page once and locating its controls.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/UnknownOlympus/cartograph/internal/geocoding"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Errors returned by Session.
var (
	ErrNotOpen           = errors.New("browser: session is not open")
	ErrSearchBoxNotFound = errors.New("browser: search box not found")
)

// Config configures a Session.
type Config struct {
	// MapURL is navigated to once when the session opens.
	MapURL string

	// Headless hides the browser window.
	Headless bool

	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// BinPath overrides the Chrome binary. Empty = launcher lookup.
	BinPath string

	// SettleTime is waited after the map page loaded. Default: 2s.
	SettleTime time.Duration

	// LocatorTimeout bounds every locator attempt. Default: 3s.
	LocatorTimeout time.Duration

	// ConsentPause is waited after the consent banner was dismissed. Default: 500ms.
	ConsentPause time.Duration
}

func (c *Config) defaults() {
	if c.SettleTime <= 0 {
		c.SettleTime = 2 * time.Second
	}
	if c.LocatorTimeout <= 0 {
		c.LocatorTimeout = 3 * time.Second
	}
	if c.ConsentPause <= 0 {
		c.ConsentPause = 500 * time.Millisecond
	}
}

// Session is one browser with one page on the map site.
type Session struct {
	cfg       Config
	log       *slog.Logger
	lnch      *launcher.Launcher
	launched  bool
	browser   *rod.Browser
	page      *rod.Page
	closeOnce sync.Once
}

// New creates a Session. Call Open to launch the browser.
func New(cfg Config, log *slog.Logger) *Session {
	cfg.defaults()
	return &Session{cfg: cfg, log: log}
}

// Open launches Chrome (or connects to a remote instance), opens the map page,
// waits for it to settle and dismisses the consent banner if one shows up.
// Whatever was acquired before a failure is released by Close.
func (s *Session) Open(ctx context.Context) error {
	controlURL := s.cfg.RemoteURL
	if controlURL == "" {
		l := launcher.New().
			Context(ctx).
			Headless(s.cfg.Headless).
			Set("start-maximized").
			Set("disable-blink-features", "AutomationControlled")
		if s.cfg.BinPath != "" {
			l = l.Bin(s.cfg.BinPath)
		}
		s.lnch = l

		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("browser: launch: %w", err)
		}
		s.launched = true
		controlURL = u
		s.log.InfoContext(ctx, "Launched local chrome", "url", controlURL, "headless", s.cfg.Headless)
	} else {
		s.log.InfoContext(ctx, "Connecting to remote chrome", "url", controlURL)
	}

	b := rod.New().Context(ctx).ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("browser: connect: %w", err)
	}
	s.browser = b

	page, err := stealth.Page(b)
	if err != nil {
		return fmt.Errorf("browser: create page: %w", err)
	}
	s.page = page

	s.log.InfoContext(ctx, "Loading map", "url", s.cfg.MapURL)

	navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err = page.Context(navCtx).Navigate(s.cfg.MapURL); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", s.cfg.MapURL, err)
	}
	if err = page.Context(navCtx).WaitLoad(); err != nil {
		s.log.WarnContext(ctx, "Map page load wait failed", "url", s.cfg.MapURL, "error", err)
	}

	if err = pause(ctx, s.cfg.SettleTime); err != nil {
		return err
	}

	s.DismissConsent(ctx)

	return nil
}

// DismissConsent clicks the first consent "reject" button it can find.
// It reports whether a banner was dismissed and never fails.
func (s *Session) DismissConsent(ctx context.Context) bool {
	if s.page == nil {
		return false
	}

	strategies := make([]func() (Locator, bool), 0, len(ConsentLocators))
	for _, loc := range ConsentLocators {
		strategies = append(strategies, func() (Locator, bool) {
			el, ok := s.find(ctx, loc)
			if !ok {
				return loc, false
			}
			if err := el.Timeout(s.cfg.LocatorTimeout).Click(proto.InputMouseButtonLeft, 1); err != nil {
				s.log.DebugContext(ctx, "Consent button not clickable", "locator", loc.String(), "error", err)
				return loc, false
			}
			return loc, true
		})
	}

	loc, ok := firstMatch(strategies)
	if !ok {
		s.log.DebugContext(ctx, "No consent popup found")
		return false
	}

	s.log.InfoContext(ctx, "Dismissed consent popup", "locator", loc.String())
	_ = pause(ctx, s.cfg.ConsentPause)

	return true
}

// SearchBox locates the map search input. It returns ErrSearchBoxNotFound when none of
// SearchLocators matched.
func (s *Session) SearchBox(ctx context.Context) (geocoding.SearchBox, error) {
	if s.page == nil {
		return nil, ErrNotOpen
	}

	strategies := make([]func() (*rod.Element, bool), 0, len(SearchLocators))
	for _, loc := range SearchLocators {
		strategies = append(strategies, func() (*rod.Element, bool) {
			el, ok := s.find(ctx, loc)
			if ok {
				s.log.InfoContext(ctx, "Found search box", "locator", loc.String())
			}
			return el, ok
		})
	}

	el, ok := firstMatch(strategies)
	if !ok {
		return nil, ErrSearchBoxNotFound
	}

	return &searchBox{el: el}, nil
}

// CurrentURL returns the URL of the map page.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	if s.page == nil {
		return "", ErrNotOpen
	}

	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("browser: page info: %w", err)
	}

	return info.URL, nil
}

// Close shuts the browser down. It is safe to call more than once and after a failed Open;
// errors are logged, never returned.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				s.log.Warn("Browser close failed", "error", err)
				if s.launched {
					s.lnch.Kill()
				}
			}
			s.browser = nil
			s.page = nil
		} else if s.launched {
			s.lnch.Kill()
		}

		if s.launched {
			s.lnch.Cleanup()
		}
		s.log.Debug("Browser session closed")
	})
}

// find waits up to LocatorTimeout for loc to match a visible, enabled element.
func (s *Session) find(ctx context.Context, loc Locator) (*rod.Element, bool) {
	p := s.page.Context(ctx).Timeout(s.cfg.LocatorTimeout)

	var (
		el  *rod.Element
		err error
	)
	if loc.XPath {
		el, err = p.ElementX(loc.Selector)
	} else {
		el, err = p.Element(loc.Selector)
	}
	if err != nil {
		return nil, false
	}

	if err = el.WaitVisible(); err != nil {
		return nil, false
	}
	if err = el.WaitEnabled(); err != nil {
		return nil, false
	}

	return el.CancelTimeout(), true
}

func pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
