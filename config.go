package main

import (
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type Config struct {
	Port      string        `env:"PORT,default=3001"`
	LogLevel  string        `env:"LOG_LEVEL,default=info"`
	AuthGrace time.Duration `env:"AUTH_GRACE,default=5s"`
	RoomIdle  time.Duration `env:"ROOM_IDLE,default=5m"`
}

func loadConfig() (Config, error) {
	// A .env file is optional; real environment variables win.
	godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
