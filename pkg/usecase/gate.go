package usecase

import (
	"context"
	"sync"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/domain/types"
)

// SessionGate tracks whether one client is signed in. It starts in
// loading, resolves with the initial session fetch, and then follows
// sign-out and refresh notifications for that session until closed.
type SessionGate struct {
	auth        AuthUseCase
	accessToken string
	onChange    func(model.GateUpdate)

	mu          sync.Mutex
	state       model.GateState
	session     *model.Session
	pending     []*model.AuthEvent
	unsubscribe func()
	closed      bool
}

// NewSessionGate creates a gate for the client holding accessToken.
// onChange is called for every state transition and may be nil.
func NewSessionGate(auth AuthUseCase, accessToken string, onChange func(model.GateUpdate)) *SessionGate {
	if onChange == nil {
		onChange = func(model.GateUpdate) {}
	}
	return &SessionGate{
		auth:        auth,
		accessToken: accessToken,
		onChange:    onChange,
		state:       model.GateStateLoading,
	}
}

// Start subscribes to notifications and then fetches the session.
// Notifications that arrive during the fetch are applied after it.
func (g *SessionGate) Start(ctx context.Context) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return goerr.New("session gate is closed")
	}
	if g.unsubscribe != nil {
		g.mu.Unlock()
		return goerr.New("session gate already started")
	}
	g.mu.Unlock()

	unsubscribe, err := g.auth.Subscribe(ctx, g.handle)
	if err != nil {
		return goerr.Wrap(err, "failed to start session gate")
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		unsubscribe()
		return goerr.New("session gate is closed")
	}
	g.unsubscribe = unsubscribe
	g.mu.Unlock()

	session, err := g.auth.GetSession(ctx, g.accessToken)
	if err != nil {
		ctxlog.From(ctx).Debug("No active session", "error", err)
		session = nil
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.session = session
	update := g.transition(types.AuthEventInitialSession)
	pending := g.pending
	g.pending = nil
	g.mu.Unlock()

	g.onChange(update)
	for _, ev := range pending {
		g.handle(ev)
	}
	return nil
}

func (g *SessionGate) handle(ev *model.AuthEvent) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	if g.state == model.GateStateLoading {
		g.pending = append(g.pending, ev)
		g.mu.Unlock()
		return
	}
	if g.session == nil || ev.SessionID != g.session.ID {
		g.mu.Unlock()
		return
	}

	switch ev.Type {
	case types.AuthEventSignedOut:
		g.session = nil
	case types.AuthEventTokenRefreshed:
		s := *g.session
		s.RefreshedAt = ev.At
		s.ExpiresAt = ev.ExpiresAt
		g.session = &s
	default:
		g.mu.Unlock()
		return
	}
	update := g.transition(ev.Type)
	g.mu.Unlock()

	g.onChange(update)
}

// transition must be called with mu held
func (g *SessionGate) transition(event types.AuthEventType) model.GateUpdate {
	update := model.GateUpdate{Event: event}
	if g.session != nil {
		g.state = model.GateStateAuthenticated
		s := *g.session
		update.Session = &s
		update.Email = s.Email
	} else {
		g.state = model.GateStateUnauthenticated
	}
	update.State = g.state
	return update
}

// State returns the current state
func (g *SessionGate) State() model.GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Session returns a copy of the current session, or nil
func (g *SessionGate) Session() *model.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return nil
	}
	s := *g.session
	return &s
}

// Close releases the subscription. It is safe to call more than once.
func (g *SessionGate) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	unsubscribe := g.unsubscribe
	g.unsubscribe = nil
	g.pending = nil
	g.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}
