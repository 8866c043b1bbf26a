package login

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	apperrors "github.com/tcmhub/wechat-login-bridge/internal/errors"
	"github.com/tcmhub/wechat-login-bridge/loginsession"
)

// StatusResult is what pollers see.
type StatusResult struct {
	Status           loginsession.Status
	ExternalIdentity string

	// Note carries the advisory "no active session" hint. The status
	// deliberately still reads pending so that a prober cannot tell issued
	// codes from unissued ones.
	Note string
}

// CheckStatus reports the current session status. Read-only except for the
// lazy expiry flip, which is idempotent, so it is safe to call at sub-second
// intervals from any number of tabs.
func (s *Service) CheckStatus(correlationKey string) StatusResult {
	session, err := s.sessions.Get(correlationKey)
	if err != nil {
		return StatusResult{
			Status: loginsession.StatusPending,
			Note:   "no active session for this key",
		}
	}

	if session.Status == loginsession.StatusPending && session.ExpiredAt(s.nowTime(), s.ttl()) {
		if session, err = s.sessions.MarkExpired(correlationKey); err != nil {
			log.Err(err).Str("key", correlationKey).Msg("Failed to expire session during poll")
			return StatusResult{Status: loginsession.StatusExpired}
		}
	}

	result := StatusResult{Status: session.Status}
	if session.Status == loginsession.StatusAuthorized {
		result.ExternalIdentity = session.ExternalIdentity
	}
	return result
}

// ExchangeResult carries the application token minted for an authorized
// handshake.
type ExchangeResult struct {
	ExternalIdentity string
	AppToken         string
}

// Exchange converts an authorized session into an application token, exactly
// once: the record is taken out of the store atomically, so a replayed
// exchange surfaces as ErrSessionNotFound.
//
// The session token is verified against the correlation key first. That is
// defense in depth only (the key signs its own token); the store remains
// authoritative.
func (s *Service) Exchange(correlationKey, sessionToken string) (ExchangeResult, error) {
	claims, err := s.codec.Verify(sessionToken, correlationKey)
	if err != nil {
		return ExchangeResult{}, err
	}
	if key, _ := claims["key"].(string); key != correlationKey {
		return ExchangeResult{}, apperrors.ErrInvalidToken
	}

	session, err := s.sessions.TakeAuthorized(correlationKey)
	if apperrors.Is(err, apperrors.ErrSessionNotReady) {
		if session.ExpiredAt(s.nowTime(), s.ttl()) || session.Status == loginsession.StatusExpired {
			return ExchangeResult{}, apperrors.ErrSessionExpired
		}
		return ExchangeResult{}, apperrors.ErrSessionNotReady
	}
	if err != nil {
		return ExchangeResult{}, err
	}

	appToken, err := s.mintAppToken(session)
	if err != nil {
		return ExchangeResult{}, err
	}

	log.Info().
		Str("key", correlationKey).
		Str("mode", string(session.Mode)).
		Msg("Login session exchanged for application token")

	return ExchangeResult{
		ExternalIdentity: session.ExternalIdentity,
		AppToken:         appToken,
	}, nil
}

// mintAppToken issues the application JWT. Unlike the handshake session
// token this one signs with a server-held secret.
func (s *Service) mintAppToken(session loginsession.Session) (string, error) {
	now := s.nowTime()
	claims := jwt.MapClaims{
		"sub":  session.ExternalIdentity,
		"mode": string(session.Mode),
		"iat":  now.Unix(),
		"exp":  now.Add(s.config.GetAppTokenExpiry()).Unix(),
		"jti":  uuid.New().String(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(s.config.GetAppTokenSecret()))
	if err != nil {
		return "", errors.Wrap(err, "[mintAppToken] failed to sign application token")
	}
	return signed, nil
}
