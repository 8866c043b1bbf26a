package config

type Config interface {
	EnvConfig
	CorsConfig
	WechatConfig
	SecurityConfig
}

type mainConfig struct {
	EnvVars
	Cors
	Wechat
	Security
}

func New() Config {
	return mainConfig{}
}
