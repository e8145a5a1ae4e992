package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
	// E2E_PAGE_LIMIT caps listing pages during the pagination scenario
	PageLimit int `envconfig:"E2E_PAGE_LIMIT" default:"2"`
	// E2E_CONCURRENT_SENDERS sizes the contention scenario
	ConcurrentSenders int `envconfig:"E2E_CONCURRENT_SENDERS" default:"8"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
