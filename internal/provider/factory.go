package provider

import (
	"fmt"
	"time"

	"github.com/sungwon/heartpost/internal/config"
)

// NewFromConfig constructs the delivery provider selected by configuration.
func NewFromConfig(cfg config.ProviderConfig) (Provider, error) {
	switch cfg.Type {
	case "stdout", "":
		return NewStdout(), nil
	case "resend":
		timeout := cfg.HTTPTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		return NewResend(ResendConfig{
			APIKey:      cfg.APIKey,
			Endpoint:    cfg.Endpoint,
			FromAddress: cfg.FromAddress,
			FromName:    cfg.FromName,
		}, NewHTTPClient(timeout)), nil
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
}
