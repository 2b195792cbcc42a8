// Package browser owns the Chrome allocator the bots play in and hands out
// one game session per bot.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/bombparty-cli/api/schemas"
	"github.com/xkilldash9x/bombparty-cli/internal/browser/session"
	"github.com/xkilldash9x/bombparty-cli/internal/config"
)

// ErrManagerClosed is returned by NewEnvironment after Shutdown.
var ErrManagerClosed = errors.New("browser: manager is shut down")

// Manager launches an isolated Chrome instance for every session it opens.
type Manager struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*session.Session
	closed   bool
}

// NewManager prepares the exec allocator. No browser is started until the
// first session is opened.
func NewManager(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) *Manager {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, ExecOptions(cfg)...)
	return &Manager{
		cfg:         cfg,
		logger:      logger.Named("browser_manager"),
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		sessions:    make(map[string]*session.Session),
	}
}

// ExecOptions translates the browser config into chromedp allocator options.
func ExecOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		// Keeps the game iframe in the page's process so its document can be
		// reached from the top level target.
		chromedp.Flag("disable-site-isolation-trials", true),
		chromedp.Flag("mute-audio", true),
	)

	// DefaultExecAllocatorOptions is headless already.
	if !cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if cfg.DisableGPU {
		opts = append(opts, chromedp.DisableGPU)
	}

	for _, arg := range cfg.Args {
		key, value, found := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if key == "" {
			continue
		}
		if found {
			opts = append(opts, chromedp.Flag(key, value))
		} else {
			opts = append(opts, chromedp.Flag(key, true))
		}
	}
	return opts
}

// RoomURL renders the configured template for a room code.
func (m *Manager) RoomURL(room string) string {
	return RoomURL(m.cfg.RoomURLTemplate, room)
}

// RoomURL renders template for room. Full URLs are passed through.
func RoomURL(template, room string) string {
	room = strings.TrimSpace(room)
	if strings.HasPrefix(room, "http://") || strings.HasPrefix(room, "https://") {
		return room
	}
	return fmt.Sprintf(template, strings.ToUpper(room))
}

// Room binds the manager to a room so it can serve as a fleet environment
// factory. greeting is posted to the chat on join when non-empty.
func (m *Manager) Room(room, greeting string) *Room {
	return &Room{manager: m, url: m.RoomURL(room), greeting: greeting}
}

// Open launches a browser for one bot and joins url under nickname.
func (m *Manager) Open(ctx context.Context, url, nickname, greeting string) (*session.Session, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	m.mu.Unlock()

	id := uuid.NewString()
	sess, err := session.Open(ctx, m.allocCtx, id, session.Options{
		RoomURL:           url,
		Nickname:          nickname,
		Greeting:          greeting,
		Selectors:         m.cfg.Selectors,
		NavigationTimeout: m.cfg.NavigationTimeout,
	}, m.logger)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		sess.Close()
		return nil, ErrManagerClosed
	}
	m.sessions[id] = sess
	m.logger.Debug("Session opened.", zap.String("session_id", id), zap.String("nickname", nickname))
	return sess, nil
}

// Release closes a session and forgets it.
func (m *Manager) Release(id string) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		sess.Close()
	}
}

// Sessions returns the number of open sessions.
func (m *Manager) Sessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown closes every session and then the allocator.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	sessions := make([]*session.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*session.Session)
	m.mu.Unlock()

	m.logger.Info("Shutting down browser manager.", zap.Int("sessions", len(sessions)))
	for _, s := range sessions {
		s.Close()
	}
	m.allocCancel()
}

// Room opens sessions in one room. It implements fleet.EnvironmentFactory.
type Room struct {
	manager  *Manager
	url      string
	greeting string
}

// URL returns the room address.
func (r *Room) URL() string { return r.url }

// NewEnvironment opens a session for botName.
func (r *Room) NewEnvironment(ctx context.Context, botName string) (schemas.Environment, error) {
	sess, err := r.manager.Open(ctx, r.url, botName, r.greeting)
	if err != nil {
		return nil, err
	}
	return &tracked{Session: sess, release: r.manager.Release}, nil
}

// tracked removes the session from its manager when the bot closes it.
type tracked struct {
	*session.Session
	release func(id string)
}

func (t *tracked) Close() error {
	t.release(t.ID())
	return nil
}
