// Package browser exposes the LLM-facing tool set over a single shared
// Chrome page driven through chromedp. One logical page is live at a time;
// every tool serializes through the session mutex for its whole duration.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ErrNotStarted is returned when a page operation is attempted before any
// tool has launched the browser.
var ErrNotStarted = errors.New("browser not started")

const defaultOpTimeout = 30 * time.Second

// Config tunes the Chrome launch. Zero value works for a locally installed
// Chrome.
type Config struct {
	ChromePath  string
	UserDataDir string
	OpTimeout   time.Duration
}

func (c Config) opTimeout() time.Duration {
	if c.OpTimeout > 0 {
		return c.OpTimeout
	}
	return defaultOpTimeout
}

// Session owns the one live page. Created empty at startup; the first tool
// that needs a page calls Start (or EnsureStarted, which launches headed
// for user-observable navigation). Closed explicitly by the close/quit
// tools or at process exit.
type Session struct {
	cfg Config

	mu          sync.Mutex
	allocCtx    context.Context
	allocCancel context.CancelFunc
	pageCtx     context.Context
	pageCancel  context.CancelFunc
	headless    bool
}

func NewSession(cfg Config) *Session {
	return &Session{cfg: cfg}
}

// Start launches Chrome and opens the page. Calling Start on a running
// session reuses the existing page; it never opens a second one.
func (s *Session) Start(headless bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(headless)
}

// EnsureStarted lazily launches a headed browser, the mode tools use when
// the user is expected to watch the navigation happen.
func (s *Session) EnsureStarted() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pageCtx != nil && s.pageCtx.Err() == nil {
		return nil
	}
	return s.startLocked(false)
}

func (s *Session) startLocked(headless bool) error {
	if s.pageCtx != nil && s.pageCtx.Err() == nil {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", headless),
	)
	if path := strings.TrimSpace(s.cfg.ChromePath); path != "" {
		opts = append(opts, chromedp.ExecPath(path))
	}
	if dir := strings.TrimSpace(s.cfg.UserDataDir); dir != "" {
		opts = append(opts, chromedp.UserDataDir(dir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	pageCtx, pageCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(pageCtx, chromedp.Navigate("about:blank")); err != nil {
		pageCancel()
		allocCancel()
		return fmt.Errorf("launch chrome: %w", err)
	}

	s.allocCtx, s.allocCancel = allocCtx, allocCancel
	s.pageCtx, s.pageCancel = pageCtx, pageCancel
	s.headless = headless
	return nil
}

// Active reports whether a live page exists.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageCtx != nil && s.pageCtx.Err() == nil
}

// Headless reports the mode the running browser was launched in.
func (s *Session) Headless() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headless
}

// Run executes actions against the live page under the session lock, with
// the given bounded wait. A zero timeout uses the configured default.
// Timeouts surface as ordinary errors for the tool boundary to report.
func (s *Session) Run(timeout time.Duration, actions ...chromedp.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pageCtx == nil || s.pageCtx.Err() != nil {
		return ErrNotStarted
	}
	if timeout <= 0 {
		timeout = s.cfg.opTimeout()
	}

	ctx, cancel := context.WithTimeout(s.pageCtx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// Location returns the current page URL.
func (s *Session) Location() (string, error) {
	var url string
	if err := s.Run(0, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// CloseTab drops the page but keeps Chrome alive. The canonical
// "not started" state afterwards is an absent page.
func (s *Session) CloseTab() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pageCtx == nil {
		return ErrNotStarted
	}

	// Ask the target to close before dropping its context so Chrome does
	// not keep an orphaned tab around.
	if s.pageCtx.Err() == nil {
		ctx, cancel := context.WithTimeout(s.pageCtx, 2*time.Second)
		_ = chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			return page.Close().Do(ctx)
		}))
		cancel()
	}

	s.pageCancel()
	s.pageCtx, s.pageCancel = nil, nil
	return nil
}

// Close tears down the page and the Chrome process. Safe to call twice.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pageCancel != nil {
		s.pageCancel()
		s.pageCtx, s.pageCancel = nil, nil
	}
	if s.allocCancel != nil {
		s.allocCancel()
		s.allocCtx, s.allocCancel = nil, nil
	}
}
