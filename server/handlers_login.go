package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/tcmhub/wechat-login-bridge/internal/errors"
	"github.com/tcmhub/wechat-login-bridge/loginsession"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeXML  = "application/xml; charset=utf-8"
)

type qrSessionResponse struct {
	CorrelationKey string `json:"correlationKey"`
	SessionToken   string `json:"sessionToken"`
	QRImageURL     string `json:"qrImageUrl"`
	TicketURL      string `json:"ticketUrl"`
	TTLSeconds     int64  `json:"ttlSeconds"`
}

type codeSessionResponse struct {
	Code         string `json:"code"`
	SessionToken string `json:"sessionToken"`
	TTLSeconds   int64  `json:"ttlSeconds"`
}

type statusRequest struct {
	CorrelationKey string `json:"correlationKey"`
}

type statusResponse struct {
	Status           loginsession.Status `json:"status"`
	ExternalIdentity string              `json:"externalIdentity,omitempty"`
	Note             string              `json:"note,omitempty"`
}

type exchangeRequest struct {
	CorrelationKey string `json:"correlationKey"`
	SessionToken   string `json:"sessionToken"`
}

type exchangeResponse struct {
	AppToken         string `json:"appToken"`
	ExternalIdentity string `json:"externalIdentity"`
}

// StartQRHandler creates a QR login session
func (s *Server) StartQRHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qr, err := s.login.StartQR(r.Context())
		if err != nil {
			log.Err(err).Msg("Failed to start QR login session")
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, qrSessionResponse{
			CorrelationKey: qr.CorrelationKey,
			SessionToken:   qr.SessionToken,
			QRImageURL:     qr.QRImageURL,
			TicketURL:      qr.TicketURL,
			TTLSeconds:     qr.TTLSeconds,
		})
	}
}

// StartCodeHandler creates a verification-code login session
func (s *Server) StartCodeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := s.login.StartCode(r.Context())
		if err != nil {
			log.Err(err).Msg("Failed to start code login session")
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, codeSessionResponse{
			Code:         code.Code,
			SessionToken: code.SessionToken,
			TTLSeconds:   code.TTLSeconds,
		})
	}
}

// StatusHandler reports the current session status for client polling
func (s *Server) StatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req statusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CorrelationKey == "" {
			writeErrorMessage(w, http.StatusBadRequest, "correlationKey is required")
			return
		}

		result := s.login.CheckStatus(req.CorrelationKey)
		writeJSON(w, http.StatusOK, statusResponse{
			Status:           result.Status,
			ExternalIdentity: result.ExternalIdentity,
			Note:             result.Note,
		})
	}
}

// ExchangeHandler converts an authorized session into an application token
func (s *Server) ExchangeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req exchangeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CorrelationKey == "" || req.SessionToken == "" {
			writeErrorMessage(w, http.StatusBadRequest, "correlationKey and sessionToken are required")
			return
		}

		result, err := s.login.Exchange(req.CorrelationKey, req.SessionToken)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, exchangeResponse{
			AppToken:         result.AppToken,
			ExternalIdentity: result.ExternalIdentity,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the handshake error taxonomy onto HTTP statuses. Clients
// get structured JSON with a generic message, never an unhandled error.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errors.ErrProviderUnavailable):
		writeErrorMessage(w, http.StatusBadGateway, "failed to create session")
	case errors.Is(err, errors.ErrInvalidToken):
		writeErrorMessage(w, http.StatusUnauthorized, "invalid session token")
	case errors.Is(err, errors.ErrSessionNotFound):
		writeErrorMessage(w, http.StatusNotFound, "session not found")
	case errors.Is(err, errors.ErrSessionExpired):
		writeErrorMessage(w, http.StatusGone, "session expired")
	case errors.Is(err, errors.ErrSessionNotReady):
		writeErrorMessage(w, http.StatusConflict, "session not authorized yet")
	default:
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
