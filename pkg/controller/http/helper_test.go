package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gt"
	controller "github.com/secmon-lab/ticktrack/pkg/controller/http"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/repository"
	"github.com/secmon-lab/ticktrack/pkg/service/events"
	"github.com/secmon-lab/ticktrack/pkg/usecase"
	"golang.org/x/crypto/bcrypt"
)

const testAPIKey = "test-anon-key"

var testNow = time.Date(2024, 3, 15, 18, 5, 0, 0, time.UTC)

func testContext() context.Context {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return ctxlog.With(context.Background(), logger)
}

type testEnv struct {
	srv  *httptest.Server
	repo *repository.Memory
	bus  *events.Memory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithClock(t, func() time.Time { return testNow })
}

// newTestEnvWithClock is for tests that go through a cookie jar, which
// drops cookies that expired by the wall clock
func newTestEnvWithClock(t *testing.T, clock func() time.Time) *testEnv {
	t.Helper()
	repo := repository.NewMemory()
	bus := events.NewMemory()

	authUC, err := usecase.NewAuth(repo, bus, usecase.AuthConfig{
		SigningKey: []byte("test-signing-key-0123456789abcdef"),
		BcryptCost: bcrypt.MinCost,
	}, usecase.WithClock(clock))
	gt.NoError(t, err).Required()

	uc := &controller.UseCases{
		Auth:      authUC,
		Ticket:    usecase.NewTicket(repo, usecase.WithClock(clock)),
		Note:      usecase.NewNote(repo, usecase.WithClock(clock)),
		Dashboard: usecase.NewDashboard(repo, usecase.WithClock(clock)),
		Export:    usecase.NewExport(repo, usecase.WithClock(clock)),
	}

	server, err := controller.NewServer(testContext(), controller.Config{
		Addr:       ":0",
		AnonKey:    testAPIKey,
		Configured: true,
		Clock:      clock,
	}, uc)
	gt.NoError(t, err).Required()

	srv := httptest.NewServer(server.Handler)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, repo: repo, bus: bus}
}

// call sends an API request with the apikey header and an optional
// bearer token. body is JSON encoded when not nil.
func (e *testEnv) call(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		gt.NoError(t, err).Required()
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	gt.NoError(t, err).Required()
	req.Header.Set("apikey", testAPIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	gt.NoError(t, err).Required()
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) signUp(t *testing.T, email string) *model.AuthResult {
	t.Helper()
	resp := e.call(t, http.MethodPost, "/api/auth/signup", "", model.Credentials{
		Email:    email,
		Password: "secret123",
		FullName: "Test User",
	})
	gt.Equal(t, resp.StatusCode, http.StatusCreated)

	var result model.AuthResult
	decode(t, resp, &result)
	return &result
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	gt.NoError(t, json.NewDecoder(resp.Body).Decode(v)).Required()
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	gt.NoError(t, err).Required()
	return string(raw)
}
