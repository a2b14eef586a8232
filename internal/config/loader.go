package config

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if AFORO_CONFIG is set
//  3. env (prefix AFORO_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("AFORO_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Environment variables: AFORO_ADDR, AFORO_DB_PATH, ...
	// Keys keep their underscores to match the koanf struct tags.
	envProvider := env.Provider("AFORO_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "aforo_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	switch {
	case cfg.Addr == "":
		return nil, errors.New("addr must not be empty")
	case cfg.DBPath == "":
		return nil, errors.New("db_path must not be empty")
	case cfg.WorkerCount < 1:
		return nil, errors.New("worker_count must be at least 1")
	}
	return &cfg, nil
}
