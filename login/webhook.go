package login

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tcmhub/wechat-login-bridge/internal/errors"
	"github.com/tcmhub/wechat-login-bridge/loginsession"
	"github.com/tcmhub/wechat-login-bridge/wechat"
)

var codePattern = regexp.MustCompile(`^\d{6}$`)

// Reply texts sent back through the platform chat.
const (
	replyLoginSuccess   = "登录成功，请返回网页继续操作。"
	replySubscribeLogin = "感谢关注！登录成功，请返回网页继续操作。"
	replyExpired        = "登录已过期，请返回网页刷新后重试。"
	replyInvalidCode    = "验证码无效或已被使用，请返回网页重新获取。"
	replyGeneric        = "您好！如需登录网站，请在登录页获取二维码或验证码。"
)

// attemptOutcome is the result of matching a callback against the store.
type attemptOutcome int

const (
	outcomeAuthorized attemptOutcome = iota
	outcomeExpired
	outcomeNotFound
)

// HandleCallback runs one inbound platform message through the handshake
// state machine and returns the passive reply to render. It never fails:
// whatever happens, the provider gets an acknowledgment.
func (s *Service) HandleCallback(msg *wechat.MixMessage) *wechat.TextReply {
	content := s.dispatch(msg)
	return wechat.NewTextReply(msg, s.nowTime().Unix(), content)
}

func (s *Service) dispatch(msg *wechat.MixMessage) string {
	switch msg.MsgType {
	case wechat.MsgTypeText:
		code := strings.TrimSpace(msg.Content)
		if !codePattern.MatchString(code) {
			return replyGeneric
		}
		return s.replyForAttempt(s.attempt(code, msg.FromUserName), false)

	case wechat.MsgTypeEvent:
		switch {
		case strings.EqualFold(msg.Event, wechat.EventScan):
			// EventKey carries the raw scene here, but strip the subscribe
			// prefix anyway if the platform sends it.
			scene := strings.TrimPrefix(msg.EventKey, wechat.EventKeyPrefix)
			return s.replyForAttempt(s.attempt(scene, msg.FromUserName), false)
		case strings.EqualFold(msg.Event, wechat.EventSubscribe):
			scene := strings.TrimPrefix(msg.EventKey, wechat.EventKeyPrefix)
			if scene == "" {
				// Plain follow without a scan; nothing to correlate.
				return replyGeneric
			}
			return s.replyForAttempt(s.attempt(scene, msg.FromUserName), true)
		default:
			return replyGeneric
		}

	default:
		return replyGeneric
	}
}

// attempt matches a correlation key delivered out-of-band against the store
// and drives the one-way transition.
func (s *Service) attempt(correlationKey, externalIdentity string) attemptOutcome {
	session, err := s.sessions.Get(correlationKey)
	if err != nil {
		log.Debug().Str("key", correlationKey).Msg("Callback referenced unknown correlation key")
		return outcomeNotFound
	}

	if session.Status == loginsession.StatusPending && session.ExpiredAt(s.nowTime(), s.ttl()) {
		if _, err := s.sessions.MarkExpired(correlationKey); err != nil {
			log.Err(err).Str("key", correlationKey).Msg("Failed to expire session")
		}
		return outcomeExpired
	}

	switch session.Status {
	case loginsession.StatusExpired:
		return outcomeExpired
	case loginsession.StatusAuthorized:
		// Duplicate delivery; the first write already won.
		return outcomeAuthorized
	}

	session, err = s.sessions.Authorize(correlationKey, externalIdentity)
	if errors.Is(err, errors.ErrSessionNotFound) {
		return outcomeNotFound
	}
	if err != nil {
		log.Err(err).Str("key", correlationKey).Msg("Failed to authorize session")
		return outcomeNotFound
	}

	// Authorize is conditional; a concurrent expiry flip may have beaten us.
	if session.Status == loginsession.StatusExpired {
		return outcomeExpired
	}

	log.Info().
		Str("key", correlationKey).
		Str("mode", string(session.Mode)).
		Msg("Login session authorized")
	return outcomeAuthorized
}

func (s *Service) replyForAttempt(outcome attemptOutcome, subscribed bool) string {
	switch outcome {
	case outcomeAuthorized:
		if subscribed {
			return replySubscribeLogin
		}
		return replyLoginSuccess
	case outcomeExpired:
		return replyExpired
	default:
		return replyInvalidCode
	}
}
