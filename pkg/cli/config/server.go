package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Server holds server configuration
type Server struct {
	Addr          string
	SecureCookies bool
	Timezone      string
}

// Flags returns CLI flags for Server configuration
func (s *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Server address",
			Category:    "Server",
			Value:       "localhost:8080",
			Sources:     cli.EnvVars("TICKTRACK_ADDR"),
			Destination: &s.Addr,
		},
		&cli.BoolFlag{
			Name:        "secure-cookies",
			Usage:       "Mark auth cookies Secure (enable behind HTTPS)",
			Category:    "Server",
			Sources:     cli.EnvVars("TICKTRACK_SECURE_COOKIES"),
			Destination: &s.SecureCookies,
		},
		TimezoneFlag(&s.Timezone),
	}
}

// Location resolves the configured timezone
func (s *Server) Location() (*time.Location, error) {
	return LoadLocation(s.Timezone)
}

// LogValue returns structured log value
func (s Server) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("addr", s.Addr),
		slog.Bool("secure_cookies", s.SecureCookies),
		slog.String("timezone", s.Timezone),
	)
}

// TimezoneFlag binds the timezone used for "today", date presets and
// report timestamps
func TimezoneFlag(dst *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "timezone",
		Usage:       "IANA timezone for work dates and reports",
		Category:    "Server",
		Value:       "Local",
		Sources:     cli.EnvVars("TICKTRACK_TIMEZONE", "TZ"),
		Destination: dst,
	}
}

// LoadLocation is time.LoadLocation with "" meaning Local
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid timezone", goerr.V("timezone", name))
	}
	return loc, nil
}
