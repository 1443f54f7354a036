package config

import "os"

func loadProductionConfig(cfg *Config) {
	cfg.DatabaseFilePath = "/data/codex.sqlite"
	cfg.DataDir = "/data"

	if path := os.Getenv("DATABASE_FILE_PATH"); path != "" {
		cfg.DatabaseFilePath = path
	}
	if dir := os.Getenv("DATA_DIRECTORY"); dir != "" {
		cfg.DataDir = dir
	}
}
