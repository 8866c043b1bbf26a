package config

import "time"

type SecurityConfig interface {
	GetSessionTTL() time.Duration
	GetSweepInterval() time.Duration
	GetAppTokenSecret() string
	GetAppTokenExpiry() time.Duration
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetSessionTTL is how long a QR scene or verification code stays usable.
// Readers treat anything older as expired even before the sweeper runs.
func (Security) GetSessionTTL() time.Duration {
	return 5 * time.Minute
}

func (Security) GetSweepInterval() time.Duration {
	return time.Minute
}

// GetAppTokenSecret signs the application token returned by the identity
// exchange. Unlike the per-session handshake token, this secret never
// leaves the server.
func (Security) GetAppTokenSecret() string {
	return GetEnv("APP_TOKEN_SECRET", "")
}

func (Security) GetAppTokenExpiry() time.Duration {
	return 24 * time.Hour
}
