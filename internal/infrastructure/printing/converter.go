package printing

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EngineState is a step in the rendering engine lifecycle
type EngineState string

const (
	EngineUninitialized EngineState = "UNINITIALIZED"
	EngineLaunching     EngineState = "LAUNCHING"
	EngineReady         EngineState = "READY"
	EngineRendering     EngineState = "RENDERING"
	EngineClosed        EngineState = "CLOSED"
)

// Converter turns rendered markup into a PDF. Every conversion acquires
// its own browser session and releases it before returning, on success
// and on failure alike.
type Converter struct {
	launcher BrowserLauncher
	page     PageOptions
	timeout  time.Duration
	logger   *zap.Logger
	observe  func(EngineState)
}

// ConverterOption configures a Converter
type ConverterOption func(*Converter)

// WithConverterLogger sets the logger
func WithConverterLogger(logger *zap.Logger) ConverterOption {
	return func(c *Converter) {
		c.logger = logger
	}
}

// WithPageOptions overrides the certificate page policy
func WithPageOptions(opts PageOptions) ConverterOption {
	return func(c *Converter) {
		c.page = opts
	}
}

// WithConvertTimeout bounds a single conversion. Zero means no timeout.
func WithConvertTimeout(d time.Duration) ConverterOption {
	return func(c *Converter) {
		c.timeout = d
	}
}

// WithStateObserver registers a callback for every lifecycle transition
func WithStateObserver(fn func(EngineState)) ConverterOption {
	return func(c *Converter) {
		c.observe = fn
	}
}

// NewConverter creates a Converter backed by the given launcher
func NewConverter(launcher BrowserLauncher, opts ...ConverterOption) *Converter {
	c := &Converter{
		launcher: launcher,
		page:     CertificatePageOptions(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// PageOptions returns the page policy applied to every conversion
func (c *Converter) PageOptions() PageOptions {
	return c.page
}

// Convert renders markup to PDF bytes
func (c *Converter) Convert(ctx context.Context, markup string) ([]byte, error) {
	if markup == "" {
		return nil, NewRenderError(ErrCodeInvalidHTML, "HTML content is empty", nil)
	}
	if !c.page.PaperSize.IsValid() {
		return nil, NewRenderError(ErrCodeInvalidPaperSize, "invalid paper size: "+string(c.page.PaperSize), nil)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	startTime := time.Now()

	engine, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer engine.release()

	pdf, err := engine.render(ctx, markup, c.page)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, NewRenderError(ErrCodeRenderTimeout, "PDF rendering timed out", err)
		}
		c.logger.Error("PDF conversion failed", zap.Error(err))
		return nil, NewRenderError(ErrCodeRenderFailed, "PDF conversion failed", err)
	}
	if len(pdf) == 0 {
		return nil, NewRenderError(ErrCodeRenderFailed, "generated PDF is empty", nil)
	}

	c.logger.Info("PDF rendered successfully",
		zap.Int("bytes", len(pdf)),
		zap.Duration("duration", time.Since(startTime)))

	return pdf, nil
}

// acquire launches a browser session wrapped in a scoped engine
func (c *Converter) acquire(ctx context.Context) (*scopedEngine, error) {
	e := &scopedEngine{
		state:   EngineUninitialized,
		logger:  c.logger,
		observe: c.observe,
	}
	e.transition(EngineLaunching)

	session, err := c.launcher.Launch(ctx)
	if err != nil {
		e.transition(EngineClosed)
		c.logger.Error("Failed to launch rendering engine", zap.Error(err))
		return nil, NewRenderError(ErrCodeEngineLaunchFailed, "failed to launch rendering engine", err)
	}

	e.session = session
	e.transition(EngineReady)
	return e, nil
}

// scopedEngine owns one browser session for the duration of a conversion
type scopedEngine struct {
	mu        sync.Mutex
	state     EngineState
	session   BrowserSession
	logger    *zap.Logger
	observe   func(EngineState)
	closeOnce sync.Once
}

func (e *scopedEngine) transition(to EngineState) {
	e.mu.Lock()
	from := e.state
	e.state = to
	e.mu.Unlock()

	e.logger.Debug("Rendering engine state changed",
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	if e.observe != nil {
		e.observe(to)
	}
}

func (e *scopedEngine) render(ctx context.Context, markup string, opts PageOptions) ([]byte, error) {
	e.transition(EngineRendering)
	return e.session.PrintPDF(ctx, markup, opts)
}

// release tears the session down. Safe to call more than once; the
// session is closed exactly once.
func (e *scopedEngine) release() {
	e.closeOnce.Do(func() {
		if err := e.session.Close(); err != nil {
			e.logger.Warn("Failed to close rendering engine", zap.Error(err))
		}
		e.transition(EngineClosed)
	})
}
