// Package browser manages the shared headless Chrome process: lazy
// launch, stealth page creation with per-profile emulation, memory
// monitoring with recycling, and shutdown.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// ErrUnavailable means Chrome could not be started or the manager is
// closed. Callers must not retry; the failure propagates to the search
// as a whole.
var ErrUnavailable = errors.New("browser: unavailable")

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// MemoryLimit in bytes. Recycle Chrome when exceeded. Default: 1GB.
	MemoryLimit int64

	// RecycleInterval is the maximum lifetime of a Chrome process. Default: 4h.
	RecycleInterval time.Duration

	// UserAgents is the rotation list for new pages. A default list is
	// used when empty.
	UserAgents []string

	// BlockedDomains are URL substrings whose requests are aborted on
	// every page (ad and tracker hosts).
	BlockedDomains []string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MemoryLimit <= 0 {
		c.MemoryLimit = 1 << 30 // 1GB
	}
	if c.RecycleInterval <= 0 {
		c.RecycleInterval = 4 * time.Hour
	}
	if len(c.UserAgents) == 0 {
		c.UserAgents = defaultUserAgents
	}
	if len(c.BlockedDomains) == 0 {
		c.BlockedDomains = defaultBlockedDomains
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
}

// Manager owns the Chrome lifecycle. Process creation is serialized by
// the mutex; once launched, pages are opened and used concurrently
// without further locking.
type Manager struct {
	cfg     Config
	mu      sync.RWMutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	startAt time.Time
	closed  bool
	monitor context.CancelFunc
}

// NewManager creates a browser Manager. Chrome launches lazily on the
// first NewPage call.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Active reports whether a Chrome process is currently running.
func (m *Manager) Active() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser != nil && !m.closed
}

// NewPage opens a stealth page configured for the profile: user agent,
// viewport, locale/timezone emulation, optional script disabling, and
// request blocking. The caller owns the page and must Close it.
func (m *Manager) NewPage(ctx context.Context, profile Profile) (*rod.Page, error) {
	b, err := m.ensure(ctx)
	if err != nil {
		return nil, err
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create page: %w", err)
	}

	if err := m.configurePage(page, profile); err != nil {
		page.Close()
		return nil, err
	}
	return page, nil
}

// Close shuts down Chrome. Safe to call when nothing was ever started,
// and safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	if m.monitor != nil {
		m.monitor()
		m.monitor = nil
	}
	m.cleanup()
	return nil
}

// ensure launches Chrome on first use. The lock guards process creation
// only, never page use.
func (m *Manager) ensure(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("%w: manager is closed", ErrUnavailable)
	}
	if m.browser != nil {
		return m.browser, nil
	}

	b, err := m.launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	m.browser = b
	m.startAt = time.Now()

	monCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.monitor = cancel
	go m.monitorLoop(monCtx)

	return b, nil
}

func (m *Manager) launch() (*rod.Browser, error) {
	log := m.cfg.Logger

	var wsURL string
	if m.cfg.RemoteURL != "" {
		wsURL = m.cfg.RemoteURL
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Headless(true).NoSandbox(true)

		// Anti-detection flags.
		l = l.Set("disable-blink-features", "AutomationControlled")
		l = l.Set("disable-dev-shm-usage")
		l = l.Set("disable-gpu")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("browser: ignore cert errors failed", "error", err)
	}
	return b, nil
}

func (m *Manager) configurePage(page *rod.Page, profile Profile) error {
	profile.defaults()

	ua := m.cfg.UserAgents[rand.Intn(len(m.cfg.UserAgents))]
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      ua,
		AcceptLanguage: profile.Locale,
	}); err != nil {
		return fmt.Errorf("browser: set user agent: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             profile.ViewportWidth,
		Height:            profile.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("browser: set viewport: %w", err)
	}

	if err := (proto.EmulationSetTimezoneOverride{TimezoneID: profile.Timezone}).Call(page); err != nil {
		m.cfg.Logger.Debug("browser: timezone override failed", "error", err)
	}

	if profile.DisableJS {
		if err := (proto.EmulationSetScriptExecutionDisabled{Value: true}).Call(page); err != nil {
			return fmt.Errorf("browser: disable scripts: %w", err)
		}
	}

	applyBlocking(page, profile.BlockResources, m.cfg.BlockedDomains)
	return nil
}

func (m *Manager) cleanup() {
	if m.browser != nil {
		m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
}

// recycle kills and relaunches Chrome. Pages opened against the old
// process fail their next operation and are retried by the next search.
func (m *Manager) recycle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.browser == nil {
		return
	}
	log := m.cfg.Logger
	log.Info("browser: recycling", "uptime", time.Since(m.startAt))

	m.cleanup()
	b, err := m.launch()
	if err != nil {
		log.Error("browser: relaunch failed", "error", err)
		return
	}
	m.browser = b
	m.startAt = time.Now()
	log.Info("browser: recycled successfully")
}

func (m *Manager) monitorLoop(ctx context.Context) {
	log := m.cfg.Logger
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.RLock()
			if m.closed || m.browser == nil {
				m.mu.RUnlock()
				return
			}
			b := m.browser
			startAt := m.startAt
			m.mu.RUnlock()

			if time.Since(startAt) > m.cfg.RecycleInterval {
				log.Info("browser: recycle interval reached")
				m.recycle()
				continue
			}

			used, err := jsHeapUsage(b)
			if err != nil {
				log.Debug("browser: heap check failed", "error", err)
				continue
			}
			if used > m.cfg.MemoryLimit {
				log.Info("browser: memory limit exceeded", "used", used, "limit", m.cfg.MemoryLimit)
				m.recycle()
			}
		}
	}
}

// jsHeapUsage queries Chrome's JS heap via the first page as a proxy
// for overall renderer memory.
func jsHeapUsage(b *rod.Browser) (int64, error) {
	pages, err := b.Pages()
	if err != nil || len(pages) == 0 {
		return 0, fmt.Errorf("no pages for heap check")
	}
	res, err := pages[0].Eval(`() => {
		if (performance.memory) {
			return performance.memory.usedJSHeapSize;
		}
		return 0;
	}`)
	if err != nil {
		return 0, err
	}
	return int64(res.Value.Int()), nil
}
