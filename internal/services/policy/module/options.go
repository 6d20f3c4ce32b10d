package module

import (
	"punchcard/internal/platform/config"
)

// Options configure the policy module
type Options struct {
	// BusinessZone is the IANA zone all civil arithmetic runs in
	BusinessZone string
}

// FromConfig reads module options from the environment
func FromConfig(cfg config.Conf) Options {
	pc := cfg.Prefix("CORE_POLICY_")
	return Options{
		BusinessZone: pc.MayString("BUSINESS_ZONE", "Asia/Dhaka"),
	}
}
