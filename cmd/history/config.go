package main

import "time"

type Config struct {
	BackendURL      string        `env:"BACKEND_URL,required=true"`
	AnonKey         string        `env:"BACKEND_ANON_KEY,required=true"`
	LogLevel        string        `env:"LOG_LEVEL,default=WARN"`
	HTTPTimeout     time.Duration `env:"HTTP_TIMEOUT,default=10s"`
	CensoredWords   string        `env:"CENSORED_WORDS"`
	CharReplacement string        `env:"CHARACTER_REPLACEMENT,default=*"`
	Colours         bool          `env:"COLOURS,default=true"`
}
