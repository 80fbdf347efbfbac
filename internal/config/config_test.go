package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.ListenAddr != ":10000" {
		t.Fatalf("listen_addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Delivery.Retries != 2 {
		t.Fatalf("retries = %d", cfg.Delivery.Retries)
	}
	if cfg.Delivery.WarmupWindow != 90*time.Second {
		t.Fatalf("warmup_window = %v", cfg.Delivery.WarmupWindow)
	}
	if cfg.Dedup.Window != 10*time.Minute || cfg.Dedup.MaxEntries != 512 {
		t.Fatalf("dedup defaults = %v / %d", cfg.Dedup.Window, cfg.Dedup.MaxEntries)
	}
	if cfg.Telemetry.LogDir != "logs" {
		t.Fatalf("log_dir = %q", cfg.Telemetry.LogDir)
	}
	if cfg.Database.MigrationsPath != "migrations" {
		t.Fatalf("migrations_path = %q", cfg.Database.MigrationsPath)
	}
	if cfg.DeliveryConfigured() {
		t.Fatal("delivery should not be configured without credentials")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ALERTRELAY_TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("ALERTRELAY_TELEGRAM_CHAT_ID", "42")
	t.Setenv("ALERTRELAY_DEDUP_WINDOW", "30m")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.DeliveryConfigured() {
		t.Fatal("credentials from env should enable delivery")
	}
	if cfg.Dedup.Window != 30*time.Minute {
		t.Fatalf("dedup.window = %v", cfg.Dedup.Window)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative retries", func(c *Config) { c.Delivery.Retries = -1 }},
		{"zero dedup window", func(c *Config) { c.Dedup.Window = 0 }},
		{"zero dedup cap", func(c *Config) { c.Dedup.MaxEntries = 0 }},
		{"empty log dir", func(c *Config) { c.Telemetry.LogDir = "" }},
		{"empty listen addr", func(c *Config) { c.Server.ListenAddr = "" }},
		{"token without chat id", func(c *Config) { c.Telegram.BotToken = "tok" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("Validate should reject")
			}
		})
	}
}
