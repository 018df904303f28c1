package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/postmottak/mailroom/internal/database"
	"github.com/postmottak/mailroom/internal/logger"
	"github.com/postmottak/mailroom/internal/tracing"
)

type Config struct {
	AppConfig      *AppConfig
	ImapConfig     *ImapConfig
	SyncConfig     *SyncConfig
	ArchiveConfig  *ArchiveConfig
	DatabaseConfig *database.DatabaseConfig
	Logger         *logger.Config
	Tracing        *tracing.JaegerConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:      &AppConfig{},
		ImapConfig:     &ImapConfig{},
		SyncConfig:     &SyncConfig{},
		ArchiveConfig:  &ArchiveConfig{},
		DatabaseConfig: &database.DatabaseConfig{},
		Logger:         &logger.Config{},
		Tracing:        &tracing.JaegerConfig{},
	}

	if err := godotenv.Load(); err != nil {
		log.Print("Unable to load .env file")
	}

	if err := env.Parse(config.AppConfig); err != nil {
		return nil, err
	}
	if err := env.Parse(config.ImapConfig); err != nil {
		return nil, err
	}
	if err := env.Parse(config.SyncConfig); err != nil {
		return nil, err
	}
	if err := env.Parse(config.ArchiveConfig); err != nil {
		return nil, err
	}
	if err := env.Parse(config.DatabaseConfig); err != nil {
		return nil, err
	}
	if err := env.Parse(config.Logger); err != nil {
		return nil, err
	}
	if err := env.Parse(config.Tracing); err != nil {
		return nil, err
	}

	return config, nil
}
