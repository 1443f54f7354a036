package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
)

type Config struct {
	DataDir             string
	DatabaseBusyTimeout time.Duration
	DatabaseDebug       bool
	DatabaseFilePath    string
	Hostname            string
}

const environmentENV = "ENVIRONMENT"

func New() (*Config, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := &Config{
		DatabaseBusyTimeout: 5 * time.Second,
		Hostname:            hostname,
	}

	switch os.Getenv(environmentENV) {
	case "development", "":
		loadDevelopmentConfig(cfg)
	case "test":
		loadTestConfig(cfg)
	case "production":
		loadProductionConfig(cfg)
	}

	return cfg, nil
}
