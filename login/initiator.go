package login

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	apperrors "github.com/tcmhub/wechat-login-bridge/internal/errors"
	"github.com/tcmhub/wechat-login-bridge/loginsession"
)

const codeCreateAttempts = 5

// QRSession is the client-facing result of starting a QR handshake
type QRSession struct {
	CorrelationKey string
	SessionToken   string
	QRImageURL     string
	TicketURL      string
	TTLSeconds     int64
}

// CodeSession is the client-facing result of starting a code handshake
type CodeSession struct {
	Code         string
	SessionToken string
	TTLSeconds   int64
}

// StartQR mints a scene string, requests a temporary QR ticket scoped to it,
// and registers a pending session. If the platform call fails nothing is
// registered and the client retries from scratch.
func (s *Service) StartQR(ctx context.Context) (QRSession, error) {
	scene := s.newScene()

	ttlSeconds := int64(s.ttl().Seconds())
	ticket, err := s.tickets.CreateTemporaryQR(ctx, scene, ttlSeconds)
	if err != nil {
		return QRSession{}, err
	}

	sessionToken, err := s.signSessionToken(scene, loginsession.ModeQR)
	if err != nil {
		return QRSession{}, err
	}

	err = s.sessions.Create(loginsession.Session{
		CorrelationKey: scene,
		Mode:           loginsession.ModeQR,
		Status:         loginsession.StatusPending,
		CreatedAt:      s.nowTime(),
	})
	if err != nil {
		return QRSession{}, errors.Wrap(err, "[StartQR] failed to register session")
	}

	return QRSession{
		CorrelationKey: scene,
		SessionToken:   sessionToken,
		QRImageURL:     ticket.ImageURL,
		TicketURL:      ticket.URL,
		TTLSeconds:     ttlSeconds,
	}, nil
}

// StartCode mints a 6-digit verification code and registers a pending
// session. No network I/O; the human relays the code through the platform
// chat themselves.
func (s *Service) StartCode(ctx context.Context) (CodeSession, error) {
	for attempt := 0; attempt < codeCreateAttempts; attempt++ {
		code, err := newVerificationCode()
		if err != nil {
			return CodeSession{}, errors.Wrap(err, "[StartCode] failed to generate code")
		}

		err = s.sessions.Create(loginsession.Session{
			CorrelationKey: code,
			Mode:           loginsession.ModeCode,
			Status:         loginsession.StatusPending,
			CreatedAt:      s.nowTime(),
		})
		if apperrors.Is(err, apperrors.ErrDuplicateSession) {
			continue // live collision, roll again
		}
		if err != nil {
			return CodeSession{}, errors.Wrap(err, "[StartCode] failed to register session")
		}

		sessionToken, err := s.signSessionToken(code, loginsession.ModeCode)
		if err != nil {
			return CodeSession{}, err
		}

		return CodeSession{
			Code:         code,
			SessionToken: sessionToken,
			TTLSeconds:   int64(s.ttl().Seconds()),
		}, nil
	}
	return CodeSession{}, errors.New("[StartCode] exhausted attempts to find a free code")
}

// newScene builds a correlation key for QR mode. Timestamp plus a random
// suffix; collisions only risk a harmless overwrite of a dead session.
func (s *Service) newScene() string {
	suffix := strings.SplitN(uuid.New().String(), "-", 2)[0]
	return fmt.Sprintf("login_%d_%s", s.nowTime().UnixMilli(), suffix)
}

// newVerificationCode returns a uniform random code in [100000, 999999]
func newVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

// signSessionToken signs the compact token handed back to the client. The
// correlation key doubles as the signing secret; see token.Codec for what
// that does and does not prove.
func (s *Service) signSessionToken(key string, mode loginsession.Mode) (string, error) {
	signed, err := s.codec.Sign(jwt.MapClaims{"key": key, "mode": string(mode)}, key)
	if err != nil {
		return "", errors.Wrap(err, "[signSessionToken] failed to sign session token")
	}
	return signed, nil
}
