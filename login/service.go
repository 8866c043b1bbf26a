// Package login implements the out-of-band login handshake: session
// initiation (QR scene or verification code), the webhook state machine fed
// by platform callbacks, client status polling, and the one-time identity
// exchange.
package login

import (
	"time"

	"github.com/pkg/errors"

	"github.com/tcmhub/wechat-login-bridge/internal/config"
	"github.com/tcmhub/wechat-login-bridge/loginsession"
	"github.com/tcmhub/wechat-login-bridge/token"
	"github.com/tcmhub/wechat-login-bridge/wechat"
)

// Service coordinates the login handshake across the correlation store, the
// token codec and the ticket provider.
type Service struct {
	sessions loginsession.Repo
	tickets  wechat.TicketProvider
	codec    *token.Codec
	config   config.SecurityConfig
	nowTime  func() time.Time // nowTime function (injectable for testing)
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// NewService initializes a new login Service with required dependencies.
func NewService(
	sessions loginsession.Repo,
	tickets wechat.TicketProvider,
	codec *token.Codec,
	cfg config.SecurityConfig,
	options ...ServiceOption,
) (*Service, error) {
	if sessions == nil {
		return nil, errors.New("[NewService] sessions repo is required")
	}
	if tickets == nil {
		return nil, errors.New("[NewService] ticket provider is required")
	}
	if codec == nil {
		return nil, errors.New("[NewService] token codec is required")
	}
	if cfg == nil {
		return nil, errors.New("[NewService] config is required")
	}

	s := &Service{
		sessions: sessions,
		tickets:  tickets,
		codec:    codec,
		config:   cfg,
		nowTime:  time.Now,
	}

	for _, option := range options {
		option(s)
	}

	return s, nil
}

func (s *Service) ttl() time.Duration {
	return s.config.GetSessionTTL()
}
