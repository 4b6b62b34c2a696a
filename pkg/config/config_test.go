package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.Storage.Driver != StorageDriverSQLite {
		t.Fatalf("expected sqlite default driver, got %q", cfg.Storage.Driver)
	}
	if cfg.Checkout.PostalCodeMinLen != 8 {
		t.Fatalf("expected postal code min len 8, got %d", cfg.Checkout.PostalCodeMinLen)
	}
	if cfg.Checkout.DefaultCountry != "Brasil" {
		t.Fatalf("unexpected default country %q", cfg.Checkout.DefaultCountry)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Fatalf("expected 10s api timeout, got %v", cfg.API.Timeout)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv(EnvAPIURL, "http://shop.test/api")
	t.Setenv(EnvStorageDriver, "redis")
	t.Setenv(EnvRedisURL, "redis://localhost:6379/0")
	t.Setenv(EnvPostalCodeMinLen, "5")
	t.Setenv(EnvJWTExpMins, "15")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.API.BaseURL != "http://shop.test/api" {
		t.Fatalf("unexpected api url %q", cfg.API.BaseURL)
	}
	if cfg.Storage.Driver != StorageDriverRedis {
		t.Fatalf("unexpected driver %q", cfg.Storage.Driver)
	}
	if cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Fatalf("unexpected Redis URL: %q", cfg.Redis.URL)
	}
	if cfg.Checkout.PostalCodeMinLen != 5 {
		t.Fatalf("unexpected postal code len %d", cfg.Checkout.PostalCodeMinLen)
	}
	if got := cfg.JWT.Expiration(); got != 15*time.Minute {
		t.Fatalf("expected 15m expiration, got %v", got)
	}
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv(EnvStorageDriver, "localstorage")
	if _, err := Load(); err == nil {
		t.Fatal("expected unknown storage driver to return an error")
	}
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}

	prodConfig := AppConfig{Env: "production"}
	if !prodConfig.IsProd() {
		t.Fatalf("expected IsProd true for %q", prodConfig.Env)
	}
}
