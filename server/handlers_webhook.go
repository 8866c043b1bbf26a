package server

import (
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/tcmhub/wechat-login-bridge/wechat"
)

// maxCallbackBody caps the inbound callback payload. WeChat messages are
// small XML documents, anything larger is not ours.
const maxCallbackBody = 64 * 1024

const callbackAck = "success"

// VerifyHandler answers the WeChat server's URL ownership challenge.
// WeChat sends a GET with a signature over (token, timestamp, nonce) and
// expects the echostr parameter echoed back verbatim.
func (s *Server) VerifyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		signature := query.Get("signature")
		timestamp := query.Get("timestamp")
		nonce := query.Get("nonce")
		echostr := query.Get("echostr")

		if signature == "" || timestamp == "" || nonce == "" || echostr == "" {
			http.Error(w, "missing verification parameters", http.StatusBadRequest)
			return
		}

		if !wechat.ValidateSignature(s.config.GetWechatToken(), timestamp, nonce, signature) {
			log.Warn().Msg("Rejected callback verification with bad signature")
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(echostr))
	}
}

// CallbackHandler receives follower messages and scan events. It always
// acknowledges with 200 so WeChat does not retry; malformed payloads are
// logged and acked with the plain "success" body.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
		if err != nil {
			log.Err(err).Msg("Failed to read callback body")
			ackPlain(w)
			return
		}

		msg, err := wechat.ParseMessage(body)
		if err != nil {
			log.Warn().Err(err).Msg("Discarded malformed callback payload")
			ackPlain(w)
			return
		}

		reply := s.login.HandleCallback(msg)
		if reply == nil {
			ackPlain(w)
			return
		}

		out, err := reply.Marshal()
		if err != nil {
			log.Err(err).Msg("Failed to marshal callback reply")
			ackPlain(w)
			return
		}

		w.Header().Set("Content-Type", contentTypeXML)
		_, _ = w.Write(out)
	}
}

func ackPlain(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(callbackAck))
}
