package server

import "net/http"

func (s *Server) initRoutes() {
	// Login session API (browser-facing, JSON)
	s.RegisterRouteHandler("POST "+RouteLoginQR, ChainMiddleware(s.StartQRHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteLoginCode, ChainMiddleware(s.StartCodeHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("PUT "+RouteLoginStatus, ChainMiddleware(s.StatusHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteLoginExchange, ChainMiddleware(s.ExchangeHandler(), s.APIMiddleware()...))

	// Platform callback (WeChat-facing, query params + XML)
	s.RegisterRouteHandler("GET "+RouteWechatCallback, ChainMiddleware(s.VerifyHandler(), s.WebhookMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteWechatCallback, ChainMiddleware(s.CallbackHandler(), s.WebhookMiddleware()...))

	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
}

// HealthHandler reports process liveness
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeJSON)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
