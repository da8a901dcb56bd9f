package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is one Chrome tab drawn from the pool. It is owned by exactly one
// task between Acquire and Release and must not be shared.
type Session struct {
	ID       string
	ctx      context.Context
	cancel   context.CancelFunc
	released bool
}

// Context returns the chromedp context bound to this tab. Run chromedp
// actions against it, wrapped in the caller's own timeout context.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Pool hands out Chrome tab sessions backed by a single shared browser
// process. The browser is launched on the first Acquire, never at
// construction. At most maxSessions tabs are live at once; further Acquire
// calls block until a session is released.
type Pool struct {
	logger    *zap.Logger
	userAgent string
	opts      []chromedp.ExecAllocatorOption

	slots chan struct{}

	mu            sync.Mutex
	initialized   bool
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	sessions      map[string]*Session
}

func NewPool(logger *zap.Logger, maxSessions int, proxyURL, userAgent string) *Pool {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
		chromedp.UserAgent(userAgent),

		// Stealth options
		chromedp.Flag("accept-language", "en-US,en;q=0.9"),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.Flag("disable-extensions", ""),
	)
	if proxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(proxyURL))
	}

	return &Pool{
		logger:    logger,
		userAgent: userAgent,
		opts:      opts,
		slots:     make(chan struct{}, maxSessions),
		sessions:  make(map[string]*Session),
	}
}

// Acquire returns a fresh tab session, blocking while the pool is at
// capacity. The returned session must be handed back with Release.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	session, err := p.newSession()
	if err != nil {
		<-p.slots
		return nil, err
	}

	p.logger.Debug("session acquired", zap.String("session_id", session.ID))
	return session, nil
}

func (p *Pool) newSession() (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), p.opts...)
		browserCtx, browserCancel := chromedp.NewContext(allocCtx)

		// Launch the browser process now so later tab contexts attach to
		// the same instance instead of spawning their own.
		if err := chromedp.Run(browserCtx); err != nil {
			browserCancel()
			allocCancel()
			return nil, fmt.Errorf("launch browser: %w", err)
		}

		p.allocCancel = allocCancel
		p.browserCtx = browserCtx
		p.browserCancel = browserCancel
		p.initialized = true
		p.logger.Info("browser launched")
	}

	tabCtx, tabCancel := chromedp.NewContext(p.browserCtx)
	if err := chromedp.Run(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": "en-US,en;q=0.9",
		}),
		chromedp.Evaluate(`
			Object.defineProperty(navigator, 'webdriver', {
				get: () => undefined,
			});
			window.chrome = { runtime: {} };
		`, nil),
	); err != nil {
		tabCancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}

	session := &Session{
		ID:     uuid.NewString(),
		ctx:    tabCtx,
		cancel: tabCancel,
	}
	p.sessions[session.ID] = session
	return session, nil
}

// Release closes the session's tab and frees its slot. Releasing a session
// twice, or one already torn down by CloseAll, is a no-op for the slot
// accounting.
func (p *Pool) Release(session *Session) {
	if session == nil {
		return
	}

	p.mu.Lock()
	if session.released {
		p.mu.Unlock()
		return
	}
	session.released = true
	delete(p.sessions, session.ID)
	p.mu.Unlock()

	session.cancel()
	<-p.slots
	p.logger.Debug("session released", zap.String("session_id", session.ID))
}

// CloseAll tears down every live tab and the browser process itself.
// Idempotent: safe before first use and safe to call repeatedly. Sessions
// still held by in-flight tasks are forcibly cancelled; their owners'
// Release calls remain harmless. The pool re-initializes on the next
// Acquire.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return
	}

	for id, session := range p.sessions {
		session.cancel()
		delete(p.sessions, id)
	}
	p.browserCancel()
	p.allocCancel()
	p.browserCtx = nil
	p.browserCancel = nil
	p.allocCancel = nil
	p.initialized = false
	p.logger.Info("browser closed")
}
