package devserver

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the environment-driven harness configuration.
type Config struct {
	HTTPAddr            string `env:"HTTP_ADDR" envDefault:":8080"`
	UploadDir           string `env:"UPLOAD_DIR" envDefault:"uploads"`
	TimerSeconds        int    `env:"TIMER_SECONDS" envDefault:"300"`
	ActivityIntervalSec int    `env:"ACTIVITY_INTERVAL_SEC" envDefault:"5"`
	ActivityMaxAgeSec   int64  `env:"ACTIVITY_MAX_AGE_SEC" envDefault:"60"`
	NATSURL             string `env:"NATS_URL"`
	NATSSubject         string `env:"NATS_SUBJECT" envDefault:"quizdash.events.*"`
}

// LoadConfig parses the harness configuration from the environment.
func LoadConfig() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
