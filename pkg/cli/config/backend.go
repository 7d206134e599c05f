package config

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/domain/interfaces"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/repository"
	"github.com/urfave/cli/v3"
)

// Values shipped in the example environment file. A backend still set to
// one of them is treated as not configured.
const (
	PlaceholderServiceURL = "https://placeholder.example.com"
	PlaceholderAnonKey    = "placeholder-key"
)

// Backend holds the data service connection settings
type Backend struct {
	ServiceURL string
	AnonKey    string
	Migrate    bool
}

// Flags returns CLI flags for Backend configuration
func (b *Backend) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "service-url",
			Usage:       "Data service URL (postgres://..., firestore://<project>/<database>, memory://)",
			Category:    "Backend",
			Sources:     cli.EnvVars("TICKTRACK_SERVICE_URL"),
			Destination: &b.ServiceURL,
		},
		&cli.StringFlag{
			Name:        "anon-key",
			Usage:       "Anonymous API key clients send in the apikey header",
			Category:    "Backend",
			Sources:     cli.EnvVars("TICKTRACK_ANON_KEY"),
			Destination: &b.AnonKey,
		},
		&cli.BoolFlag{
			Name:        "migrate",
			Usage:       "Apply the SQL schema on startup (PostgreSQL only)",
			Category:    "Backend",
			Sources:     cli.EnvVars("TICKTRACK_MIGRATE"),
			Destination: &b.Migrate,
		},
	}
}

// IsConfigured reports whether both values are set, neither is a
// placeholder, and the URL scheme is supported
func (b *Backend) IsConfigured() bool {
	if b.ServiceURL == "" || b.AnonKey == "" {
		return false
	}
	if strings.HasPrefix(b.ServiceURL, PlaceholderServiceURL) || b.AnonKey == PlaceholderAnonKey {
		return false
	}
	_, err := b.scheme()
	return err == nil
}

func (b *Backend) scheme() (string, error) {
	u, err := url.Parse(b.ServiceURL)
	if err != nil {
		return "", goerr.Wrap(err, "invalid service URL")
	}
	switch u.Scheme {
	case "postgres", "postgresql":
		return "postgres", nil
	case "firestore", "memory":
		return u.Scheme, nil
	default:
		return "", goerr.New("unsupported service URL scheme", goerr.V("scheme", u.Scheme))
	}
}

// Configure opens the repository selected by the service URL scheme
func (b *Backend) Configure(ctx context.Context) (interfaces.Repository, error) {
	if !b.IsConfigured() {
		return nil, goerr.Wrap(model.ErrNotConfigured, "set TICKTRACK_SERVICE_URL and TICKTRACK_ANON_KEY (run `ticktrack setup` for a guide)")
	}
	logger := ctxlog.From(ctx)

	scheme, err := b.scheme()
	if err != nil {
		return nil, err
	}

	switch scheme {
	case "postgres":
		repo, err := repository.NewPostgres(ctx, b.ServiceURL)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to connect to PostgreSQL", goerr.V("url", b.redactedURL()))
		}
		if b.Migrate {
			if err := repo.Migrate(ctx); err != nil {
				_ = repo.Close()
				return nil, err
			}
			logger.Info("Database schema applied")
		}
		return repo, nil

	case "firestore":
		projectID, databaseID, err := parseFirestoreURL(b.ServiceURL)
		if err != nil {
			return nil, err
		}
		repo, err := repository.NewFirestore(ctx, projectID, databaseID)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to init firestore",
				goerr.V("project", projectID),
				goerr.V("database", databaseID),
			)
		}
		return repo, nil

	default:
		logger.Warn("Using memory database. The data will be removed when shutting down")
		return repository.NewMemory(), nil
	}
}

// SetupGuide returns the first-run guide including the SQL schema
func (b *Backend) SetupGuide() *model.SetupGuide {
	return model.NewSetupGuide(repository.Schema)
}

// parseFirestoreURL reads firestore://<project>/<database>. The database
// defaults to "(default)".
func parseFirestoreURL(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", goerr.Wrap(err, "invalid firestore URL")
	}
	if u.Host == "" {
		return "", "", goerr.New("firestore URL needs a project", goerr.V("url", raw))
	}
	databaseID := strings.Trim(u.Path, "/")
	if databaseID == "" {
		databaseID = "(default)"
	}
	return u.Host, databaseID, nil
}

func (b *Backend) redactedURL() string {
	u, err := url.Parse(b.ServiceURL)
	if err != nil {
		return "(invalid)"
	}
	return u.Redacted()
}

// LogValue returns structured log value without credentials
func (b Backend) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("service_url", b.redactedURL()),
		slog.Bool("anon_key_set", b.AnonKey != ""),
		slog.Bool("configured", b.IsConfigured()),
		slog.Bool("migrate", b.Migrate),
	)
}
