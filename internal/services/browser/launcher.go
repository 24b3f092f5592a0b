// Package browser owns the headless Chrome session a scenario runs in.
package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webprobe/internal/common"
	"github.com/ternarybob/webprobe/internal/interfaces"
)

// Launcher starts one Chrome process per session
type Launcher struct {
	config *common.Config
	logger arbor.ILogger
}

// NewLauncher creates a launcher from the [browser] config section
func NewLauncher(config *common.Config, logger arbor.ILogger) *Launcher {
	return &Launcher{
		config: config,
		logger: logger,
	}
}

// AllocatorOptions returns the Chrome flags for a CI-friendly session
func (l *Launcher) AllocatorOptions() []chromedp.ExecAllocatorOption {
	cfg := l.config.Browser

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", cfg.DisableGPU),
		chromedp.Flag("no-sandbox", cfg.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", cfg.DisableDevShm),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	)

	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	return opts
}

// Open launches Chrome and returns a ready session. The caller must Close it.
func (l *Launcher) Open(ctx context.Context) (*Session, error) {
	cfg := l.config.Browser

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), l.AllocatorOptions()...)

	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx,
		chromedp.WithLogf(func(s string, i ...interface{}) {
			l.logger.Debug().Msgf("chromedp: "+s, i...)
		}),
	)

	session := &Session{
		ctx:             browserCtx,
		browserCancel:   browserCancel,
		allocatorCancel: allocatorCancel,
		elementTimeout:  l.config.ElementTimeout(),
		logger:          l.logger,
	}

	session.listenConsole()

	// First Run starts the browser; fixed viewport keeps screenshots comparable
	startCtx, startCancel := context.WithTimeout(browserCtx, l.config.ScenarioTimeout())
	defer startCancel()
	stop := context.AfterFunc(ctx, startCancel)
	defer stop()

	if err := chromedp.Run(startCtx,
		chromedp.EmulateViewport(int64(cfg.WindowWidth), int64(cfg.WindowHeight)),
		chromedp.Navigate("about:blank"),
	); err != nil {
		session.Close()
		return nil, fmt.Errorf("%w: %v", ErrSessionStart, err)
	}

	l.logger.Debug().
		Bool("headless", cfg.Headless).
		Int("width", cfg.WindowWidth).
		Int("height", cfg.WindowHeight).
		Msg("Browser session started")

	return session, nil
}

// Launch implements interfaces.BrowserLauncher
func (l *Launcher) Launch(ctx context.Context) (interfaces.BrowserSession, error) {
	session, err := l.Open(ctx)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// WithSession launches a session, runs fn and always closes the session,
// including when fn panics (the panic continues after the close).
func WithSession(ctx context.Context, launcher interfaces.BrowserLauncher, fn func(session interfaces.BrowserSession) error) (err error) {
	session, err := launcher.Launch(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := session.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return fn(session)
}
