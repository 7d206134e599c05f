package config

import (
	"context"
	"crypto/rand"
	"log/slog"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/domain/interfaces"
	"github.com/secmon-lab/ticktrack/pkg/usecase"
	"github.com/urfave/cli/v3"
	"golang.org/x/crypto/bcrypt"
)

// Auth holds token and session settings
type Auth struct {
	SigningKey     string
	AccessTokenTTL time.Duration
	SessionTTL     time.Duration
	BcryptCost     int
}

// Flags returns CLI flags for Auth configuration
func (a *Auth) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "signing-key",
			Usage:       "HMAC key for access tokens; a random key is used when empty",
			Category:    "Auth",
			Sources:     cli.EnvVars("TICKTRACK_SIGNING_KEY"),
			Destination: &a.SigningKey,
		},
		&cli.DurationFlag{
			Name:        "access-token-ttl",
			Usage:       "Lifetime of access tokens",
			Category:    "Auth",
			Value:       usecase.DefaultAccessTokenTTL,
			Sources:     cli.EnvVars("TICKTRACK_ACCESS_TOKEN_TTL"),
			Destination: &a.AccessTokenTTL,
		},
		&cli.DurationFlag{
			Name:        "session-ttl",
			Usage:       "Lifetime of a session (extended on refresh)",
			Category:    "Auth",
			Value:       usecase.DefaultSessionTTL,
			Sources:     cli.EnvVars("TICKTRACK_SESSION_TTL"),
			Destination: &a.SessionTTL,
		},
		&cli.IntFlag{
			Name:        "bcrypt-cost",
			Usage:       "bcrypt cost for password hashes",
			Category:    "Auth",
			Value:       bcrypt.DefaultCost,
			Sources:     cli.EnvVars("TICKTRACK_BCRYPT_COST"),
			Destination: &a.BcryptCost,
		},
	}
}

// IsConfigured reports whether a persistent signing key is set
func (a *Auth) IsConfigured() bool {
	return a.SigningKey != ""
}

// Configure creates the auth use case. Without a signing key a random one
// is generated, so tokens do not survive a restart.
func (a *Auth) Configure(ctx context.Context, repo interfaces.Repository, bus interfaces.AuthEventBus, opts ...usecase.Option) (usecase.AuthUseCase, error) {
	key := []byte(a.SigningKey)
	if !a.IsConfigured() {
		ctxlog.From(ctx).Warn("TICKTRACK_SIGNING_KEY is not set, using a random key. Sessions end on restart")
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, goerr.Wrap(err, "failed to generate signing key")
		}
	}

	return usecase.NewAuth(repo, bus, usecase.AuthConfig{
		SigningKey:     key,
		AccessTokenTTL: a.AccessTokenTTL,
		SessionTTL:     a.SessionTTL,
		BcryptCost:     a.BcryptCost,
	}, opts...)
}

// LogValue returns structured log value
func (a Auth) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("signing_key_set", a.IsConfigured()),
		slog.Duration("access_token_ttl", a.AccessTokenTTL),
		slog.Duration("session_ttl", a.SessionTTL),
		slog.Int("bcrypt_cost", a.BcryptCost),
	)
}
