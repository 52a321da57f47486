package printing

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const defaultChromeTimeout = 30 * time.Second

// ChromedpConfig contains configuration for the chromedp launcher
type ChromedpConfig struct {
	// RemoteURL is the URL of a remote Chrome/Chromium instance (optional)
	// If empty, a new browser process is started for every session
	RemoteURL string
	// ExecPath overrides the Chrome binary location (optional)
	ExecPath string
	// NoSandbox runs Chrome without sandbox (required for Docker/root)
	NoSandbox bool
	// LaunchTimeout bounds browser startup
	LaunchTimeout time.Duration
	// Logger for debug output
	Logger *zap.Logger
}

// ChromedpLauncher launches headless Chrome sessions via the DevTools Protocol
type ChromedpLauncher struct {
	config *ChromedpConfig
	logger *zap.Logger
}

// NewChromedpLauncher creates a new chromedp-based BrowserLauncher
func NewChromedpLauncher(config *ChromedpConfig) *ChromedpLauncher {
	if config == nil {
		config = &ChromedpConfig{}
	}
	if config.LaunchTimeout == 0 {
		config.LaunchTimeout = defaultChromeTimeout
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ChromedpLauncher{
		config: config,
		logger: logger,
	}
}

// allocatorOptions returns the exec allocator flags for server environments
func (l *ChromedpLauncher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true), // Important for Docker
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		// Font rendering
		chromedp.Flag("font-render-hinting", "none"),
	)

	if l.config.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	if l.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.config.ExecPath))
	}

	return opts
}

// Launch starts a browser and returns a session bound to it
func (l *ChromedpLauncher) Launch(ctx context.Context) (BrowserSession, error) {
	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if l.config.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, l.config.RemoteURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, l.allocatorOptions()...)
	}

	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			l.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	session := &chromedpSession{
		ctx:           browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
	}

	// Running with no actions starts the browser and opens the first tab.
	// The browser lives as long as browserCtx, so the launch deadline cancels
	// it through a timer instead of a derived context.
	timer := time.AfterFunc(l.config.LaunchTimeout, browserCancel)
	err := chromedp.Run(browserCtx)
	if !timer.Stop() {
		_ = session.Close()
		return nil, fmt.Errorf("browser did not start within %s", l.config.LaunchTimeout)
	}
	if err != nil {
		_ = session.Close()
		return nil, err
	}

	return session, nil
}

// chromedpSession is a launched browser with a single tab
type chromedpSession struct {
	ctx           context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
}

// PrintPDF loads the markup into a blank page and prints it
func (s *chromedpSession) PrintPDF(ctx context.Context, html string, opts PageOptions) ([]byte, error) {
	params := buildPrintParams(opts)

	// Propagate cancellation of the caller's context to the tab
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var pdfData []byte
	err := chromedp.Run(runCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		// Let layout settle before exporting
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(params.printBackground).
				WithPreferCSSPageSize(params.preferCSSPageSize).
				WithPaperWidth(params.paperWidth).
				WithPaperHeight(params.paperHeight).
				WithMarginTop(0).
				WithMarginRight(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithLandscape(params.landscape).
				Do(ctx)
			if err != nil {
				return err
			}
			pdfData = data
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	return pdfData, nil
}

// Close shuts down the browser and its allocator
func (s *chromedpSession) Close() error {
	err := chromedp.Cancel(s.ctx)
	s.browserCancel()
	s.allocCancel()
	return err
}

// printParams holds the parameters for PDF printing
type printParams struct {
	paperWidth        float64
	paperHeight       float64
	landscape         bool
	printBackground   bool
	preferCSSPageSize bool
}

// buildPrintParams constructs the print parameters from the page options
func buildPrintParams(opts PageOptions) *printParams {
	// Paper size in inches (Chrome uses inches)
	width, height := opts.PaperSize.Dimensions()

	return &printParams{
		paperWidth:        mmToInches(float64(width)),
		paperHeight:       mmToInches(float64(height)),
		landscape:         opts.Orientation == OrientationLandscape,
		printBackground:   opts.PrintBackground,
		preferCSSPageSize: opts.PreferCSSPageSize,
	}
}

// mmToInches converts millimeters to inches
func mmToInches(mm float64) float64 {
	return mm / 25.4
}

// Ensure ChromedpLauncher implements BrowserLauncher
var _ BrowserLauncher = (*ChromedpLauncher)(nil)
