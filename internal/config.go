package internal

import "time"

type Config struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,required=true"`

	Host      string `env:"HOST,default=localhost"`
	Port      int    `env:"PORT,default=8080"`
	DebugPort int    `env:"DEBUG_PORT,default=8090"`

	// LimitMessages bounds a message listing page; nil means unbounded.
	LimitMessages *int `env:"LIMIT_MESSAGES"`

	SearchPageSize  int `env:"SEARCH_PAGE_SIZE,default=10"`
	IndexFlushEvery int `env:"INDEX_FLUSH_EVERY,default=50"`

	// CensoredTermsPath points at a newline-separated dictionary;
	// empty disables moderation entirely.
	CensoredTermsPath string `env:"CENSORED_TERMS_PATH"`
	ModerationMask    string `env:"MODERATION_MASK,default=*"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}
