// Path: internal/config/constants.go
package config

import "time"

const (
	// Server configuration defaults
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
)

const (
	DefaultConfigFile = "config/.env"

	// Registry and scheduler defaults
	DefaultViesURL        = "https://ec.europa.eu/taxation_customs/vies/services/checkVatService"
	DefaultRequestTimeout = 30 * time.Second
	DefaultTimeUnit       = time.Second
	DefaultPacingUnits    = 1
	DefaultMaxRetries     = 4
)
