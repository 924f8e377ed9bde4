package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port         string `yaml:"port"`
		ReadTimeout  string `yaml:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		TokenTTL  string `yaml:"token_ttl"`
		// SecretGenerated is set when no secret was configured and Load made a random one.
		SecretGenerated bool `yaml:"-"`
	} `yaml:"auth"`
	Exam struct {
		ShareCacheTTL    string `yaml:"share_cache_ttl"`
		AttemptRetention string `yaml:"attempt_retention"`
		Timezone         string `yaml:"timezone"`
	} `yaml:"exam"`
}

// Load reads YAML config from path. A missing file yields defaults (in-memory
// storage, no Redis). A .env file in the working directory is loaded first and
// PORT, JWT_SECRET, POSTGRES_URL and REDIS_ADDR override the file. Without a
// configured JWT secret a random one is generated for this process.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	override(&cfg.Server.Port, "PORT")
	override(&cfg.Auth.JWTSecret, "JWT_SECRET")
	override(&cfg.Postgres.URL, "POSTGRES_URL")
	override(&cfg.Redis.Addr, "REDIS_ADDR")

	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Auth.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return cfg, err
		}
		cfg.Auth.JWTSecret = secret
		cfg.Auth.SecretGenerated = true
	}
	return cfg, nil
}

// Location resolves the configured streak timezone, defaulting to the server's local zone.
func (c Config) Location() (*time.Location, error) {
	if c.Exam.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Exam.Timezone)
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// randomSecret returns a per-process signing key; tokens do not survive a restart.
func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func override(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
