package wechat

import (
	"context"
	"fmt"
	"net/url"

	wechatlib "github.com/silenceper/wechat/v2"
	"github.com/silenceper/wechat/v2/cache"
	"github.com/silenceper/wechat/v2/officialaccount"
	"github.com/silenceper/wechat/v2/officialaccount/basic"
	offConfig "github.com/silenceper/wechat/v2/officialaccount/config"

	appconfig "github.com/tcmhub/wechat-login-bridge/internal/config"
	"github.com/tcmhub/wechat-login-bridge/internal/errors"
)

const showQRCodeURL = "https://mp.weixin.qq.com/cgi-bin/showqrcode"

// QRTicket is a temporary scene ticket issued by the platform.
type QRTicket struct {
	Ticket        string
	URL           string // the content encoded in the QR code
	ImageURL      string // user-facing QR image
	ExpireSeconds int64
}

// TicketProvider requests scene-scoped QR tickets from the platform. The
// access-credential fetch happens behind this call and may fail the same
// way the ticket request can.
type TicketProvider interface {
	CreateTemporaryQR(ctx context.Context, scene string, expireSeconds int64) (QRTicket, error)
}

// OfficialAccountProvider backs TicketProvider with the Official Account
// API. Access tokens are cached and refreshed by the underlying client.
type OfficialAccountProvider struct {
	account *officialaccount.OfficialAccount
}

// NewOfficialAccountProvider builds the provider from the configured
// Official Account credentials.
func NewOfficialAccountProvider(cfg appconfig.WechatConfig) *OfficialAccountProvider {
	wc := wechatlib.NewWechat()
	account := wc.GetOfficialAccount(&offConfig.Config{
		AppID:          cfg.GetWechatAppID(),
		AppSecret:      cfg.GetWechatAppSecret(),
		Token:          cfg.GetWechatToken(),
		EncodingAESKey: cfg.GetWechatEncodingAESKey(),
		Cache:          cache.NewMemory(),
	})
	return &OfficialAccountProvider{account: account}
}

// CreateTemporaryQR requests a temporary scene-string QR ticket. Any failure
// (credential fetch, network, platform errcode) surfaces as
// ErrProviderUnavailable; no distinction matters to the caller, who retries
// session creation from scratch.
func (p *OfficialAccountProvider) CreateTemporaryQR(ctx context.Context, scene string, expireSeconds int64) (QRTicket, error) {
	req := &basic.Request{
		ExpireSeconds: expireSeconds,
		ActionName:    "QR_STR_SCENE",
		ActionInfo: struct {
			Scene struct {
				SceneStr string `json:"scene_str,omitempty"`
				SceneID  int    `json:"scene_id,omitempty"`
			} `json:"scene"`
		}{
			Scene: struct {
				SceneStr string `json:"scene_str,omitempty"`
				SceneID  int    `json:"scene_id,omitempty"`
			}{
				SceneStr: scene,
			},
		},
	}

	res, err := p.account.GetBasic().GetQRTicket(req)
	if err != nil {
		return QRTicket{}, errors.Wrapf(errors.ErrProviderUnavailable, "GetQRTicket for scene %q (%v)", scene, err)
	}

	return QRTicket{
		Ticket:        res.Ticket,
		URL:           res.URL,
		ImageURL:      ImageURL(res.Ticket),
		ExpireSeconds: expireSeconds,
	}, nil
}

// ImageURL returns the user-facing QR image URL for a ticket
func ImageURL(ticket string) string {
	return fmt.Sprintf("%s?ticket=%s", showQRCodeURL, url.QueryEscape(ticket))
}

var _ TicketProvider = (*OfficialAccountProvider)(nil)
