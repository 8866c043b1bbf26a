package config

// WechatConfig exposes the Official Account credentials and the webhook
// verification token configured on the WeChat platform side.
type WechatConfig interface {
	GetWechatAppID() string
	GetWechatAppSecret() string
	GetWechatToken() string
	GetWechatEncodingAESKey() string
}

type Wechat struct{}

var _ WechatConfig = Wechat{}

func (Wechat) GetWechatAppID() string {
	return GetEnv("WECHAT_APP_ID", "")
}

func (Wechat) GetWechatAppSecret() string {
	return GetEnv("WECHAT_APP_SECRET", "")
}

// GetWechatToken returns the shared secret used for the GET handshake
// signature check. Must match the token entered in the platform console.
func (Wechat) GetWechatToken() string {
	return GetEnv("WECHAT_TOKEN", "")
}

func (Wechat) GetWechatEncodingAESKey() string {
	return GetEnv("WECHAT_ENCODING_AES_KEY", "")
}
