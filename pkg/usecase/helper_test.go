package usecase_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/domain/types"
	"github.com/secmon-lab/ticktrack/pkg/repository"
	"github.com/secmon-lab/ticktrack/pkg/service/events"
	"github.com/secmon-lab/ticktrack/pkg/usecase"
	"golang.org/x/crypto/bcrypt"
)

func testContext() context.Context {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return ctxlog.With(context.Background(), logger)
}

// fakeClock is a settable clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type authFixture struct {
	auth  usecase.AuthUseCase
	repo  *repository.Memory
	bus   *events.Memory
	clock *fakeClock
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	repo := repository.NewMemory()
	bus := events.NewMemory()
	clock := newFakeClock(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))

	auth, err := usecase.NewAuth(repo, bus, usecase.AuthConfig{
		SigningKey:     []byte("test-signing-key-0123456789abcdef"),
		AccessTokenTTL: time.Hour,
		SessionTTL:     24 * time.Hour,
		BcryptCost:     bcrypt.MinCost,
	}, usecase.WithClock(clock.Now))
	if err != nil {
		t.Fatal(err)
	}

	return &authFixture{auth: auth, repo: repo, bus: bus, clock: clock}
}

func (f *authFixture) signUp(t *testing.T, email string) *model.AuthResult {
	t.Helper()
	result, err := f.auth.SignUp(testContext(), model.Credentials{
		Email:    email,
		Password: "secret123",
		FullName: "Test User",
	})
	if err != nil {
		t.Fatal(err)
	}
	return result
}

// notifierRecorder collects ticket notifications delivered in the
// background
type notifierRecorder struct {
	mu     sync.Mutex
	events []*model.TicketEvent
	ch     chan struct{}
}

func newNotifierRecorder() *notifierRecorder {
	return &notifierRecorder{ch: make(chan struct{}, 16)}
}

func (n *notifierRecorder) NotifyTicket(ctx context.Context, event *model.TicketEvent) error {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
	n.ch <- struct{}{}
	return nil
}

func (n *notifierRecorder) wait(t *testing.T) *model.TicketEvent {
	t.Helper()
	select {
	case <-n.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events[len(n.events)-1]
}

func (n *notifierRecorder) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

const testUser = types.UserID("user-1")
