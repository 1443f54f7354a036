package config

func loadDevelopmentConfig(cfg *Config) {
	cfg.DatabaseDebug = true
	cfg.DatabaseFilePath = "./tmp/codex.sqlite"
	cfg.DataDir = "./tmp/data"
}
