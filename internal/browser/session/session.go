// Package session drives one game tab over the Chrome DevTools Protocol.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/xkilldash9x/bombparty-cli/api/schemas"
	"github.com/xkilldash9x/bombparty-cli/internal/config"
)

const (
	defaultJoinPoll  = 250 * time.Millisecond
	probeTimeout     = 5 * time.Second
	keystrokeTimeout = 10 * time.Second
	greetingTimeout  = 10 * time.Second
)

// Options describes the room a session joins and how to find its elements.
type Options struct {
	RoomURL           string
	Nickname          string
	Greeting          string
	Selectors         config.SelectorConfig
	NavigationTimeout time.Duration
	JoinPoll          time.Duration
}

// Session implements schemas.Environment for a single jklm.fun tab.
type Session struct {
	id     string
	opts   Options
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu sync.Mutex
	// frameDoc is the game frame's document, resolved lazily and dropped
	// whenever a probe finds it stale.
	frameDoc  runtime.RemoteObjectID
	closeOnce sync.Once
}

var _ schemas.Environment = (*Session)(nil)

// Open starts a new tab under parent, enters the nickname, posts the
// greeting when one is set, and resolves the game frame. parent must carry a
// chromedp allocator or browser.
func Open(ctx, parent context.Context, id string, opts Options, logger *zap.Logger) (*Session, error) {
	if opts.JoinPoll <= 0 {
		opts.JoinPoll = defaultJoinPoll
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 30 * time.Second
	}
	logger = logger.With(zap.String("session_id", id), zap.String("nickname", opts.Nickname))
	tabCtx, cancel := chromedp.NewContext(parent, chromedp.WithLogf(logger.Sugar().Debugf))

	// The first Run allocates the target and binds it to the context it is
	// given, so it must not carry an operational deadline.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("session: failed to start tab: %w", err)
	}

	s := &Session{
		id:     id,
		opts:   opts,
		logger: logger,
		ctx:    tabCtx,
		cancel: cancel,
	}

	if err := s.enterRoom(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// ID returns the identifier the session was opened with.
func (s *Session) ID() string { return s.id }

func (s *Session) enterRoom(ctx context.Context) error {
	navCtx, cancelNav := context.WithTimeout(ctx, s.opts.NavigationTimeout)
	defer cancelNav()

	sel := s.opts.Selectors
	err := s.run(navCtx,
		chromedp.Navigate(s.opts.RoomURL),
		chromedp.WaitVisible(sel.Nickname, chromedp.BySearch),
		chromedp.SetValue(sel.Nickname, "", chromedp.BySearch),
		chromedp.SendKeys(sel.Nickname, s.opts.Nickname+kb.Enter, chromedp.BySearch),
	)
	if err != nil {
		return fmt.Errorf("session: failed to enter room %s: %w", s.opts.RoomURL, err)
	}
	s.logger.Info("Entered room.", zap.String("url", s.opts.RoomURL))

	if s.opts.Greeting != "" {
		s.greet(ctx)
	}

	if _, err := s.frameDocument(navCtx); err != nil {
		return fmt.Errorf("session: game frame not found: %w", err)
	}
	return nil
}

// greet posts the greeting to the room chat. The chat is cosmetic, so a
// failure only gets logged.
func (s *Session) greet(ctx context.Context) {
	gctx, cancel := context.WithTimeout(ctx, greetingTimeout)
	defer cancel()

	sel := s.opts.Selectors
	err := s.run(gctx,
		chromedp.Click(sel.ChatToggle, chromedp.BySearch),
		chromedp.WaitVisible(sel.ChatInput, chromedp.BySearch),
		chromedp.SendKeys(sel.ChatInput, s.opts.Greeting+kb.Enter, chromedp.BySearch),
	)
	if err != nil {
		s.logger.Warn("Could not post greeting.", zap.Error(err))
	}
}

// IsRoundActive reports whether the round indicator is shown.
func (s *Session) IsRoundActive(ctx context.Context) (bool, error) {
	res, err := s.probe(ctx, s.opts.Selectors.Round, actionNone)
	if err != nil {
		return false, err
	}
	return res.Found && res.Visible, nil
}

// IsMyTurnVisible reports whether the answer input is shown.
func (s *Session) IsMyTurnVisible(ctx context.Context) (bool, error) {
	res, err := s.probe(ctx, s.opts.Selectors.AnswerInput, actionNone)
	if err != nil {
		return false, err
	}
	return res.Found && res.Visible, nil
}

// ReadCurrentCombo returns the syllable shown on the bomb.
func (s *Session) ReadCurrentCombo(ctx context.Context) (string, error) {
	res, err := s.probe(ctx, s.opts.Selectors.Combo, actionNone)
	if err != nil {
		return "", err
	}
	if !res.Found {
		return "", nil
	}
	return strings.ToLower(strings.TrimSpace(res.Text)), nil
}

// SubmitKeystroke focuses the answer input and dispatches keys to it.
func (s *Session) SubmitKeystroke(ctx context.Context, keys string) error {
	res, err := s.probe(ctx, s.opts.Selectors.AnswerInput, actionFocus)
	if err != nil {
		return err
	}
	if !res.Visible {
		return nil
	}

	opCtx, cancel := context.WithTimeout(ctx, keystrokeTimeout)
	defer cancel()
	if err := s.run(opCtx, chromedp.KeyEvent(keys)); err != nil {
		return s.classify(fmt.Errorf("session: failed to dispatch keys: %w", err))
	}
	return nil
}

// JoinNextGame clicks the join button as soon as it is shown.
func (s *Session) JoinNextGame(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.JoinPoll)
	defer ticker.Stop()

	for {
		res, err := s.probe(ctx, s.opts.Selectors.JoinButton, actionClick)
		if err != nil {
			return err
		}
		if res.Found && res.Visible {
			s.logger.Debug("Joined next game.")
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.ctx.Done():
			return fmt.Errorf("session: tab closed while waiting to join: %w", schemas.ErrSessionClosed)
		case <-ticker.C:
		}
	}
}

// Close shuts the tab. Calling it more than once is safe.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.logger.Debug("Closing session.")
		s.cancel()
	})
	return nil
}

// run executes actions on the tab while honouring ctx.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if s.ctx.Err() != nil {
		return fmt.Errorf("session: tab closed: %w", schemas.ErrSessionClosed)
	}
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// probe evaluates xpath inside the game frame. A stale frame document is
// resolved again once before the error is reported.
func (s *Session) probe(ctx context.Context, xpath string, action probeAction) (probeResult, error) {
	opCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	res, err := s.callInFrame(opCtx, xpath, action)
	if err != nil && isStaleObject(err) && ctx.Err() == nil {
		s.dropFrame()
		res, err = s.callInFrame(opCtx, xpath, action)
	}
	if err != nil {
		return probeResult{}, s.classify(fmt.Errorf("session: probe %s: %w", xpath, err))
	}
	return res, nil
}

func (s *Session) callInFrame(ctx context.Context, xpath string, action probeAction) (probeResult, error) {
	doc, err := s.frameDocument(ctx)
	if err != nil {
		return probeResult{}, err
	}

	var res probeResult
	err = s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, exc, err := runtime.CallFunctionOn(probeScript(xpath, action)).
			WithObjectID(doc).
			WithReturnByValue(true).
			WithSilent(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("script exception: %s", exc.Text)
		}
		return json.Unmarshal([]byte(obj.Value), &res)
	}))
	return res, err
}

// frameDocument returns the remote object of the game frame's document.
func (s *Session) frameDocument(ctx context.Context) (runtime.RemoteObjectID, error) {
	s.mu.Lock()
	doc := s.frameDoc
	s.mu.Unlock()
	if doc != "" {
		return doc, nil
	}

	var frames []*cdp.Node
	err := s.run(ctx,
		chromedp.Nodes(frameXPath(s.opts.Selectors.GameFrameURL), &frames, chromedp.BySearch),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if len(frames) == 0 {
				return errors.New("no game iframe on page")
			}
			described, err := dom.DescribeNode().
				WithNodeID(frames[0].NodeID).
				WithDepth(1).
				WithPierce(true).
				Do(ctx)
			if err != nil {
				return err
			}
			if described.ContentDocument == nil {
				return errors.New("iframe has no content document")
			}
			obj, err := dom.ResolveNode().
				WithBackendNodeID(described.ContentDocument.BackendNodeID).
				Do(ctx)
			if err != nil {
				return err
			}
			doc = obj.ObjectID
			return nil
		}),
	)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.frameDoc = doc
	s.mu.Unlock()
	return doc, nil
}

func (s *Session) dropFrame() {
	s.mu.Lock()
	s.frameDoc = ""
	s.mu.Unlock()
}

// classify marks err as ErrSessionClosed when the tab behind it is gone.
func (s *Session) classify(err error) error {
	if err == nil || errors.Is(err, schemas.ErrSessionClosed) {
		return err
	}
	if s.ctx.Err() != nil || isTargetGone(err) {
		return fmt.Errorf("%w: %v", schemas.ErrSessionClosed, err)
	}
	return err
}

// isTargetGone reports errors chromedp raises once the tab or browser died.
func isTargetGone(err error) bool {
	if errors.Is(err, chromedp.ErrChannelClosed) || errors.Is(err, chromedp.ErrInvalidContext) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "No target with given id") ||
		strings.Contains(msg, "Target closed") ||
		strings.Contains(msg, "websocket: close")
}

// isStaleObject reports errors caused by a frame document that was replaced.
func isStaleObject(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Could not find object with given id") ||
		strings.Contains(msg, "Cannot find context with specified id") ||
		strings.Contains(msg, "No node with given id")
}
