package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner
func PrintBanner(version string) {
	banner.Print("WebProbe", version)
}

// LogStartup records the effective targets so CI logs show what was probed
func LogStartup(config *Config, logger arbor.ILogger) {
	logger.Info().
		Str("version", GetFullVersion()).
		Str("environment", config.Environment).
		Str("frontend", config.Frontend.BaseURL).
		Str("signup_url", config.SignupURL()).
		Bool("headless", config.Browser.Headless).
		Str("wait_timeout", config.WaitTimeout().String()).
		Msg("WebProbe starting")
}
