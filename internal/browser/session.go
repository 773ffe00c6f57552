// internal/browser/session.go

// Package browser provides a headless Chrome session over CDP. Locator
// arguments accept comma-joined CSS selector lists; each candidate is tried
// in order and the first one present on the page wins, which lets callers
// hand over guess lists for login forms they have never seen.
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/api/schemas"
	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/internal/agent"
	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/internal/config"
)

var _ agent.BrowserController = (*Session)(nil)

// candidateProbe is how long each selector candidate gets to appear before
// the next one in the list is tried.
const candidateProbe = 2 * time.Second

// Session is a single headless Chrome browsing session. All operations run
// against the session's master CDP context with a per-operation timeout, so
// a hung page cannot wedge the control loop.
type Session struct {
	id     string
	logger *zap.Logger
	cfg    config.BrowserConfig
	net    config.NetworkConfig

	ctx         context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc

	closeOnce sync.Once
}

// NewSession launches a Chrome instance and opens a fresh tab. The returned
// session is ready for navigation; launch failures are fatal for the run.
func NewSession(parent context.Context, cfg config.BrowserConfig, net config.NetworkConfig, logger *zap.Logger) (*Session, error) {
	sessionID := uuid.New().String()
	log := logger.Named("browser").With(zap.String("session_id", sessionID))

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight),
	)
	if cfg.IgnoreTLSErrors {
		opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	for _, arg := range cfg.Args {
		name, value, found := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if found {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...interface{}) {
		log.Debug(fmt.Sprintf(format, args...))
	}))

	s := &Session{
		id:          sessionID,
		logger:      log,
		cfg:         cfg,
		net:         net,
		ctx:         ctx,
		cancelCtx:   cancelCtx,
		cancelAlloc: cancelAlloc,
	}

	// Starting the browser eagerly surfaces launch failures here rather
	// than on the first navigation. The device metrics override pins the
	// viewport regardless of the window size the platform granted.
	startCtx, cancel := context.WithTimeout(ctx, net.NavigationTimeout)
	defer cancel()
	err := chromedp.Run(startCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		return emulation.SetDeviceMetricsOverride(
			int64(cfg.ViewportWidth), int64(cfg.ViewportHeight), 1.0, false).Do(ctx)
	}))
	if err != nil {
		s.teardown()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	log.Info("Browser session started", zap.Bool("headless", cfg.Headless))
	return s, nil
}

// run executes CDP actions against the session context with a timeout,
// honoring cancellation of the caller's context as well.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(opCtx, actions...)
	if err != nil && opCtx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("browser operation timed out after %v: %w", timeout, opCtx.Err())
	}
	return err
}

// Navigate loads the URL, waits for the document body and returns the
// resulting page snapshot.
func (s *Session) Navigate(ctx context.Context, url string) (*schemas.PageSnapshot, error) {
	s.logger.Info("Navigating", zap.String("url", url))
	err := s.run(ctx, s.net.NavigationTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return s.PageState(ctx)
}

// splitLocator breaks a comma-joined locator list into its candidate
// selectors, dropping empty entries.
func splitLocator(locator string) []string {
	parts := strings.Split(locator, ",")
	candidates := make([]string, 0, len(parts))
	for _, p := range parts {
		if sel := strings.TrimSpace(p); sel != "" {
			candidates = append(candidates, sel)
		}
	}
	return candidates
}

// resolve picks the first candidate from a comma-joined locator list that is
// visible on the page.
func (s *Session) resolve(ctx context.Context, locator string) (string, error) {
	for _, sel := range splitLocator(locator) {
		if err := s.run(ctx, candidateProbe, chromedp.WaitVisible(sel, chromedp.ByQuery)); err == nil {
			return sel, nil
		}
	}
	return "", fmt.Errorf("no visible element matched locator %q", locator)
}

// Fill clears the matched field and types the value into it.
func (s *Session) Fill(ctx context.Context, locator, value string) error {
	sel, err := s.resolve(ctx, locator)
	if err != nil {
		return err
	}
	s.logger.Debug("Filling field", zap.String("selector", sel))
	err = s.run(ctx, s.net.DefaultWaitTimeout,
		chromedp.Clear(sel, chromedp.ByQuery),
		chromedp.SendKeys(sel, value, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to fill %s: %w", sel, err)
	}
	return nil
}

// Click clicks the matched element, then pauses briefly so a triggered
// navigation or DOM update has a chance to land before the next snapshot.
func (s *Session) Click(ctx context.Context, locator string) error {
	sel, err := s.resolve(ctx, locator)
	if err != nil {
		return err
	}
	s.logger.Debug("Clicking", zap.String("selector", sel))
	err = s.run(ctx, s.net.DefaultWaitTimeout,
		chromedp.Click(sel, chromedp.ByQuery),
		chromedp.Sleep(s.net.PostActionWait),
	)
	if err != nil {
		return fmt.Errorf("failed to click %s: %w", sel, err)
	}
	return nil
}

// SelectOption sets a <select> element to the option with the given value
// and fires its change event.
func (s *Session) SelectOption(ctx context.Context, locator, value string) error {
	sel, err := s.resolve(ctx, locator)
	if err != nil {
		return err
	}
	err = s.run(ctx, s.net.DefaultWaitTimeout,
		chromedp.SetValue(sel, value, chromedp.ByQuery),
		chromedp.Evaluate(fmt.Sprintf(
			`document.querySelector(%q).dispatchEvent(new Event('change', {bubbles: true}))`, sel), nil),
	)
	if err != nil {
		return fmt.Errorf("failed to select option on %s: %w", sel, err)
	}
	return nil
}

// SubmitForm submits the form containing the matched element and allows a
// longer settle window, since submission usually navigates.
func (s *Session) SubmitForm(ctx context.Context, locator string) error {
	sel, err := s.resolve(ctx, locator)
	if err != nil {
		return err
	}
	s.logger.Debug("Submitting form", zap.String("selector", sel))
	err = s.run(ctx, s.net.DefaultWaitTimeout,
		chromedp.Submit(sel, chromedp.ByQuery),
		chromedp.Sleep(4*s.net.PostActionWait),
	)
	if err != nil {
		return fmt.Errorf("failed to submit %s: %w", sel, err)
	}
	return nil
}

// WaitFor blocks until the locator is visible or the timeout elapses.
func (s *Session) WaitFor(ctx context.Context, locator string, timeout time.Duration) error {
	sel := strings.TrimSpace(locator)
	if err := s.run(ctx, timeout, chromedp.WaitVisible(sel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("element %s did not appear within %v: %w", sel, timeout, err)
	}
	return nil
}

// ExtractText returns the inner text of the matched element.
func (s *Session) ExtractText(ctx context.Context, locator string) (string, error) {
	sel, err := s.resolve(ctx, locator)
	if err != nil {
		return "", err
	}
	var text string
	if err := s.run(ctx, s.net.DefaultWaitTimeout, chromedp.Text(sel, &text, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to extract text from %s: %w", sel, err)
	}
	return text, nil
}

// Screenshot captures the viewport to the given path, creating parent
// directories as needed, and returns the saved path.
func (s *Session) Screenshot(ctx context.Context, path string) (string, error) {
	var buf []byte
	if err := s.run(ctx, s.net.DefaultWaitTimeout, chromedp.CaptureScreenshot(&buf)); err != nil {
		return "", fmt.Errorf("screenshot capture failed: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	s.logger.Info("Screenshot saved", zap.String("path", path))
	return path, nil
}

// PageState snapshots the current URL, title and markup. The HTML is
// truncated to the configured limit; snapshots feed validation heuristics
// and LLM prompts, neither of which wants a full DOM dump.
func (s *Session) PageState(ctx context.Context) (*schemas.PageSnapshot, error) {
	var currentURL, title, html string
	err := s.run(ctx, s.net.DefaultWaitTimeout,
		chromedp.Location(&currentURL),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read page state: %w", err)
	}
	if limit := s.cfg.SnapshotHTMLLimit; limit > 0 && len(html) > limit {
		html = html[:limit]
	}
	return &schemas.PageSnapshot{URL: currentURL, Title: title, HTML: html}, nil
}

// Close shuts the tab and the browser process down. Safe to call more than
// once.
func (s *Session) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.logger.Info("Closing browser session")
		err = chromedp.Cancel(s.ctx)
		s.teardown()
	})
	return err
}

func (s *Session) teardown() {
	s.cancelCtx()
	s.cancelAlloc()
}
