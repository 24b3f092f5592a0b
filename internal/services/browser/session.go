package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webprobe/internal/interfaces"
	"github.com/ternarybob/webprobe/internal/models"
)

// Session is one Chrome process with a single tab
type Session struct {
	ctx             context.Context
	browserCancel   context.CancelFunc
	allocatorCancel context.CancelFunc
	elementTimeout  time.Duration
	logger          arbor.ILogger

	closeOnce sync.Once
	closed    bool
	console   []string
	mu        sync.Mutex
}

var (
	_ interfaces.BrowserSession  = (*Session)(nil)
	_ interfaces.ConsoleRecorder = (*Session)(nil)
)

// maxConsoleEntries caps how many console errors a session keeps
const maxConsoleEntries = 50

// listenConsole records uncaught exceptions and console.error calls
func (s *Session) listenConsole() {
	chromedp.ListenTarget(s.ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *runtime.EventExceptionThrown:
			if e.ExceptionDetails == nil {
				return
			}
			msg := e.ExceptionDetails.Text
			if e.ExceptionDetails.Exception != nil && e.ExceptionDetails.Exception.Description != "" {
				msg = e.ExceptionDetails.Exception.Description
			}
			s.recordConsole("exception: " + msg)
		case *runtime.EventConsoleAPICalled:
			if e.Type != runtime.APITypeError {
				return
			}
			parts := make([]string, 0, len(e.Args))
			for _, arg := range e.Args {
				if arg.Value != nil {
					parts = append(parts, strings.Trim(string(arg.Value), `"`))
				} else if arg.Description != "" {
					parts = append(parts, arg.Description)
				}
			}
			s.recordConsole("console.error: " + strings.Join(parts, " "))
		}
	})
}

func (s *Session) recordConsole(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.console) >= maxConsoleEntries {
		return
	}
	s.console = append(s.console, excerpt(msg, 500))
}

// ConsoleErrors returns the script errors seen since the session started
func (s *Session) ConsoleErrors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.console...)
}

// Close shuts the browser down. Safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		if cancelErr := chromedp.Cancel(s.ctx); cancelErr != nil && !errors.Is(cancelErr, context.Canceled) {
			err = fmt.Errorf("failed to close browser: %w", cancelErr)
		}
		s.browserCancel()
		s.allocatorCancel()
		s.logger.Debug().Msg("Browser session closed")
	})
	return err
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// run executes actions in the tab, bounded by ctx and, when set, timeout
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if s.isClosed() {
		return ErrSessionClosed
	}

	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(runCtx, deadline)
		defer cancel()
	}
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// Navigate loads url and waits for the document body
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug().Str("url", url).Msg("Navigating")
	if err := s.run(ctx, 0,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// InjectStyle appends a <style> element with css to the document head
func (s *Session) InjectStyle(ctx context.Context, css string) error {
	literal, err := json.Marshal(css)
	if err != nil {
		return fmt.Errorf("failed to encode style: %w", err)
	}

	script := fmt.Sprintf(`(function() {
		var style = document.createElement('style');
		style.textContent = %s;
		(document.head || document.documentElement).appendChild(style);
		return true;
	})()`, literal)

	var ok bool
	if err := s.run(ctx, s.elementTimeout, chromedp.Evaluate(script, &ok)); err != nil {
		return fmt.Errorf("failed to inject style: %w", err)
	}
	return nil
}

// Fill waits up to the element timeout for #id and types value into it
func (s *Session) Fill(ctx context.Context, id string, value string) error {
	selector := "#" + id
	err := s.run(ctx, s.elementTimeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
	if err != nil {
		return s.elementError(ctx, selector, err)
	}
	return nil
}

// Click waits up to the element timeout for selector and clicks it
func (s *Session) Click(ctx context.Context, selector string) error {
	err := s.run(ctx, s.elementTimeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
	if err != nil {
		return s.elementError(ctx, selector, err)
	}
	return nil
}

// Snapshot captures URL, title and rendered markup
func (s *Session) Snapshot(ctx context.Context) (models.PageState, error) {
	var state models.PageState
	if err := s.run(ctx, s.elementTimeout,
		chromedp.Location(&state.URL),
		chromedp.Title(&state.Title),
		chromedp.OuterHTML("html", &state.HTML, chromedp.ByQuery),
	); err != nil {
		return state, fmt.Errorf("failed to capture page state: %w", err)
	}
	return state, nil
}

// BodyText returns the rendered text of the body
func (s *Session) BodyText(ctx context.Context) (string, error) {
	var text string
	if err := s.run(ctx, s.elementTimeout,
		chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text),
	); err != nil {
		return "", fmt.Errorf("failed to read body text: %w", err)
	}
	return text, nil
}

// WaitFor polls the page until any of checks holds. Reaching the timeout
// reports false with a nil error. URL checks are case-insensitive.
func (s *Session) WaitFor(ctx context.Context, checks []models.Check, timeout, interval time.Duration) (bool, error) {
	if len(checks) == 0 {
		return false, nil
	}
	expr, err := waitExpression(checks)
	if err != nil {
		return false, err
	}

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}

		var reached bool
		err := s.run(ctx, remaining+s.elementTimeout, chromedp.Poll(expr, &reached,
			chromedp.WithPollingTimeout(remaining),
			chromedp.WithPollingInterval(interval),
		))
		switch {
		case err == nil:
			return reached, nil
		case errors.Is(err, chromedp.ErrPollingTimeout):
			return false, nil
		case ctx.Err() != nil:
			return false, ctx.Err()
		case errors.Is(err, ErrSessionClosed):
			return false, err
		}

		// a navigation destroyed the execution context; poll the new document
		s.logger.Debug().Err(err).Msg("Wait interrupted, polling again")
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// waitExpression builds a JS predicate that is true when any check holds
func waitExpression(checks []models.Check) (string, error) {
	terms := make([]string, 0, len(checks))
	for _, c := range checks {
		switch c.Target {
		case models.CheckTargetURL:
			literal, err := json.Marshal(strings.ToLower(c.Contains))
			if err != nil {
				return "", fmt.Errorf("failed to encode check %s: %w", c, err)
			}
			terms = append(terms, fmt.Sprintf("location.href.toLowerCase().includes(%s)", literal))
		case models.CheckTargetMarkup:
			literal, err := json.Marshal(c.Contains)
			if err != nil {
				return "", fmt.Errorf("failed to encode check %s: %w", c, err)
			}
			terms = append(terms, fmt.Sprintf("document.documentElement.outerHTML.includes(%s)", literal))
		case models.CheckTargetText:
			literal, err := json.Marshal(c.Contains)
			if err != nil {
				return "", fmt.Errorf("failed to encode check %s: %w", c, err)
			}
			terms = append(terms, fmt.Sprintf("(!!document.body && document.body.innerText.includes(%s))", literal))
		default:
			return "", fmt.Errorf("unknown check target: %s", c.Target)
		}
	}
	return strings.Join(terms, " || "), nil
}

// Screenshot captures the viewport as PNG
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, s.elementTimeout, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// elementError builds an ElementError with a page-source excerpt and logs it.
// Cancellation of the caller's context is returned as-is.
func (s *Session) elementError(ctx context.Context, selector string, cause error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("lookup of %s aborted: %w", selector, ctx.Err())
	}

	elemErr := &ElementError{Selector: selector, Err: cause}

	// the lookup deadline has passed; give the diagnostics their own budget
	var state models.PageState
	if err := s.run(context.Background(), 2*time.Second,
		chromedp.Location(&state.URL),
		chromedp.OuterHTML("html", &state.HTML, chromedp.ByQuery),
	); err == nil {
		elemErr.URL = state.URL
		elemErr.Excerpt = excerpt(state.HTML, ExcerptLength)
	}

	s.logger.Error().
		Str("selector", selector).
		Str("url", elemErr.URL).
		Str("page_source", elemErr.Excerpt).
		Err(cause).
		Msg("Element lookup failed")

	return elemErr
}

func excerpt(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
