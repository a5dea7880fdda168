package providers

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/you/go-flight-offers/internal/config"
	"github.com/you/go-flight-offers/internal/ratelimit"
)

// NewSource builds the upstream selected by cfg.Provider.
func NewSource(cfg *config.Config, limiter *ratelimit.Limiter, log *zap.Logger) (RawOfferSource, error) {
	client := &http.Client{Timeout: cfg.HTTPTimeout}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "duffel":
		return NewDuffel(cfg, client, limiter, log), nil
	case "amadeus":
		creds := NewCredentialCache(NewAmadeusTokenSource(cfg, client), cfg.TokenRefreshSkew)
		return NewAmadeus(cfg, client, creds, limiter, log), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
