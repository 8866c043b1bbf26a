package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Login session routes (consumed by the portal frontend)
	RouteLoginQR       = "/api/login/qr"
	RouteLoginCode     = "/api/login/code"
	RouteLoginStatus   = "/api/login/status"
	RouteLoginExchange = "/api/login/exchange"

	// Platform callback routes (consumed by the WeChat servers)
	// GET is the one-time server-identity handshake, POST delivers messages.
	RouteWechatCallback = "/api/wechat/callback"

	// Health check
	RouteHealth = "/healthz"
)
