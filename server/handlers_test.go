package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tcmhub/wechat-login-bridge/internal/config"
	apperrors "github.com/tcmhub/wechat-login-bridge/internal/errors"
	"github.com/tcmhub/wechat-login-bridge/login"
	"github.com/tcmhub/wechat-login-bridge/loginsession"
	"github.com/tcmhub/wechat-login-bridge/server"
	"github.com/tcmhub/wechat-login-bridge/token"
	"github.com/tcmhub/wechat-login-bridge/wechat"
	"github.com/tcmhub/wechat-login-bridge/wechat/providerfake"
)

const (
	testWechatToken = "callback-token"
	testOpenID      = "o6_bmjrPTlm6_2sgVt7hMZOPfL2M"
	testTTL         = 5 * time.Minute
)

type testConfig struct {
	config.EnvVars
	config.Cors
	config.Wechat
}

func (testConfig) GetEnv() string                   { return "test" }
func (testConfig) GetWechatToken() string           { return testWechatToken }
func (testConfig) GetSessionTTL() time.Duration     { return testTTL }
func (testConfig) GetSweepInterval() time.Duration  { return time.Minute }
func (testConfig) GetAppTokenSecret() string        { return "test-app-secret" }
func (testConfig) GetAppTokenExpiry() time.Duration { return 24 * time.Hour }

type testFixture struct {
	repo     *loginsession.InMemoryRepo
	provider *providerfake.FakeTicketProvider
	server   *server.Server
}

func setupTestServer(t *testing.T) testFixture {
	t.Helper()

	repo := loginsession.NewInMemoryRepo(testTTL)
	provider := providerfake.NewFakeTicketProvider()

	service, err := login.NewService(repo, provider, token.NewCodec(testTTL), testConfig{})
	require.NoError(t, err)

	srv, err := server.New(testConfig{}, service)
	require.NoError(t, err)

	return testFixture{repo: repo, provider: provider, server: srv}
}

func postJSON(t *testing.T, srv *server.Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return requestJSON(t, srv, http.MethodPost, path, body)
}

func requestJSON(t *testing.T, srv *server.Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
}

func TestStartQRHandler(t *testing.T) {
	fixture := setupTestServer(t)

	rec := postJSON(t, fixture.server, server.RouteLoginQR, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		CorrelationKey string `json:"correlationKey"`
		SessionToken   string `json:"sessionToken"`
		QRImageURL     string `json:"qrImageUrl"`
		TTLSeconds     int64  `json:"ttlSeconds"`
	}
	decodeBody(t, rec, &body)

	require.NotEmpty(t, body.CorrelationKey)
	require.NotEmpty(t, body.SessionToken)
	require.Contains(t, body.QRImageURL, "showqrcode")
	require.Equal(t, int64(testTTL.Seconds()), body.TTLSeconds)
}

func TestStartQRHandlerProviderDown(t *testing.T) {
	fixture := setupTestServer(t)
	fixture.provider.Err = apperrors.ErrProviderUnavailable

	rec := postJSON(t, fixture.server, server.RouteLoginQR, nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var body map[string]string
	decodeBody(t, rec, &body)
	require.Equal(t, "failed to create session", body["error"])
}

func TestStartCodeHandler(t *testing.T) {
	fixture := setupTestServer(t)

	rec := postJSON(t, fixture.server, server.RouteLoginCode, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Code         string `json:"code"`
		SessionToken string `json:"sessionToken"`
	}
	decodeBody(t, rec, &body)
	require.Len(t, body.Code, 6)
	require.NotEmpty(t, body.SessionToken)
}

func TestStatusHandler(t *testing.T) {
	fixture := setupTestServer(t)

	rec := postJSON(t, fixture.server, server.RouteLoginQR, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var started struct {
		CorrelationKey string `json:"correlationKey"`
	}
	decodeBody(t, rec, &started)

	rec = requestJSON(t, fixture.server, http.MethodPut, server.RouteLoginStatus,
		map[string]string{"correlationKey": started.CorrelationKey})
	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		Status string `json:"status"`
	}
	decodeBody(t, rec, &status)
	require.Equal(t, "pending", status.Status)
}

func TestStatusHandlerUnknownKeyReportsPending(t *testing.T) {
	fixture := setupTestServer(t)

	rec := requestJSON(t, fixture.server, http.MethodPut, server.RouteLoginStatus,
		map[string]string{"correlationKey": "login_1700000000000_deadbeef"})
	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		Status string `json:"status"`
		Note   string `json:"note"`
	}
	decodeBody(t, rec, &status)
	require.Equal(t, "pending", status.Status)
	require.NotEmpty(t, status.Note)
}

func TestStatusHandlerMissingKey(t *testing.T) {
	fixture := setupTestServer(t)

	rec := requestJSON(t, fixture.server, http.MethodPut, server.RouteLoginStatus, map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExchangeHandler(t *testing.T) {
	fixture := setupTestServer(t)

	rec := postJSON(t, fixture.server, server.RouteLoginQR, nil)
	var started struct {
		CorrelationKey string `json:"correlationKey"`
		SessionToken   string `json:"sessionToken"`
	}
	decodeBody(t, rec, &started)

	_, err := fixture.repo.Authorize(started.CorrelationKey, testOpenID)
	require.NoError(t, err)

	rec = postJSON(t, fixture.server, server.RouteLoginExchange, map[string]string{
		"correlationKey": started.CorrelationKey,
		"sessionToken":   started.SessionToken,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var exchanged struct {
		AppToken         string `json:"appToken"`
		ExternalIdentity string `json:"externalIdentity"`
	}
	decodeBody(t, rec, &exchanged)
	require.NotEmpty(t, exchanged.AppToken)
	require.Equal(t, testOpenID, exchanged.ExternalIdentity)

	// A second exchange finds nothing to redeem.
	rec = postJSON(t, fixture.server, server.RouteLoginExchange, map[string]string{
		"correlationKey": started.CorrelationKey,
		"sessionToken":   started.SessionToken,
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExchangeHandlerPendingSession(t *testing.T) {
	fixture := setupTestServer(t)

	rec := postJSON(t, fixture.server, server.RouteLoginQR, nil)
	var started struct {
		CorrelationKey string `json:"correlationKey"`
		SessionToken   string `json:"sessionToken"`
	}
	decodeBody(t, rec, &started)

	rec = postJSON(t, fixture.server, server.RouteLoginExchange, map[string]string{
		"correlationKey": started.CorrelationKey,
		"sessionToken":   started.SessionToken,
	})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestExchangeHandlerBadToken(t *testing.T) {
	fixture := setupTestServer(t)

	rec := postJSON(t, fixture.server, server.RouteLoginQR, nil)
	var started struct {
		CorrelationKey string `json:"correlationKey"`
	}
	decodeBody(t, rec, &started)

	rec = postJSON(t, fixture.server, server.RouteLoginExchange, map[string]string{
		"correlationKey": started.CorrelationKey,
		"sessionToken":   "not-a-token",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerifyHandler(t *testing.T) {
	fixture := setupTestServer(t)

	timestamp := "1700000000"
	nonce := "abc123"
	signature := wechat.Signature(testWechatToken, timestamp, nonce)

	url := fmt.Sprintf("%s?signature=%s&timestamp=%s&nonce=%s&echostr=hello-wechat",
		server.RouteWechatCallback, signature, timestamp, nonce)
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	fixture.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "hello-wechat", rec.Body.String())
}

func TestVerifyHandlerBadSignature(t *testing.T) {
	fixture := setupTestServer(t)

	url := server.RouteWechatCallback + "?signature=bogus&timestamp=1700000000&nonce=abc123&echostr=hello"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	fixture.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerifyHandlerMissingParams(t *testing.T) {
	fixture := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, server.RouteWechatCallback+"?signature=x", nil)
	rec := httptest.NewRecorder()
	fixture.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallbackHandlerScanAuthorizes(t *testing.T) {
	fixture := setupTestServer(t)

	rec := postJSON(t, fixture.server, server.RouteLoginQR, nil)
	var started struct {
		CorrelationKey string `json:"correlationKey"`
	}
	decodeBody(t, rec, &started)

	payload := fmt.Sprintf(`<xml>
  <ToUserName><![CDATA[gh_7f083739789a]]></ToUserName>
  <FromUserName><![CDATA[%s]]></FromUserName>
  <CreateTime>1700000000</CreateTime>
  <MsgType><![CDATA[event]]></MsgType>
  <Event><![CDATA[SCAN]]></Event>
  <EventKey><![CDATA[%s]]></EventKey>
</xml>`, testOpenID, started.CorrelationKey)

	req := httptest.NewRequest(http.MethodPost, server.RouteWechatCallback, strings.NewReader(payload))
	resp := httptest.NewRecorder()
	fixture.server.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "登录成功")

	session, err := fixture.repo.Get(started.CorrelationKey)
	require.NoError(t, err)
	require.Equal(t, loginsession.StatusAuthorized, session.Status)
	require.Equal(t, testOpenID, session.ExternalIdentity)
}

func TestCallbackHandlerMalformedPayload(t *testing.T) {
	fixture := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, server.RouteWechatCallback, strings.NewReader("<xml><broken"))
	rec := httptest.NewRecorder()
	fixture.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "success", rec.Body.String())
}

func TestHealthHandler(t *testing.T) {
	fixture := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, server.RouteHealth, nil)
	rec := httptest.NewRecorder()
	fixture.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
