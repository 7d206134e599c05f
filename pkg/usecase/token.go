package usecase

import (
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/ticktrack/pkg/domain/model"
	"github.com/secmon-lab/ticktrack/pkg/domain/types"
)

const (
	claimSessionID = "sid"
	claimEmail     = "email"
)

// tokenSigner issues and verifies HS256 access tokens
type tokenSigner struct {
	key    []byte
	issuer string
	clock  func() time.Time
}

type accessClaims struct {
	UserID    types.UserID
	SessionID types.SessionID
	Email     string
}

func (s *tokenSigner) sign(session *model.Session, expiresAt time.Time) (string, error) {
	tok, err := jwt.NewBuilder().
		Issuer(s.issuer).
		Subject(session.UserID.String()).
		IssuedAt(s.clock()).
		Expiration(expiresAt).
		Claim(claimSessionID, session.ID.String()).
		Claim(claimEmail, session.Email).
		Build()
	if err != nil {
		return "", goerr.Wrap(err, "failed to build access token")
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, s.key))
	if err != nil {
		return "", goerr.Wrap(err, "failed to sign access token")
	}
	return string(signed), nil
}

func (s *tokenSigner) verify(token string) (*accessClaims, error) {
	tok, err := jwt.Parse([]byte(token),
		jwt.WithKey(jwa.HS256, s.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(s.issuer),
		jwt.WithClock(jwt.ClockFunc(s.clock)),
	)
	if err != nil {
		return nil, goerr.Wrap(model.ErrUnauthorized, "invalid access token", goerr.V("reason", err.Error()))
	}

	sid, ok := tok.Get(claimSessionID)
	if !ok {
		return nil, goerr.Wrap(model.ErrUnauthorized, "access token has no session")
	}
	sidStr, ok := sid.(string)
	if !ok || sidStr == "" {
		return nil, goerr.Wrap(model.ErrUnauthorized, "access token has no session")
	}

	claims := &accessClaims{
		UserID:    types.UserID(tok.Subject()),
		SessionID: types.SessionID(sidStr),
	}
	if email, ok := tok.Get(claimEmail); ok {
		claims.Email, _ = email.(string)
	}
	return claims, nil
}
