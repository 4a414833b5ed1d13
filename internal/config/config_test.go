package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("TZ", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBDriver != "sqlite" || cfg.StorageDriver != "local" || cfg.Port != "3001" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if len(cfg.JWTSecret) != 64 {
		t.Fatalf("dev mode should fall back to a random secret, got %q", cfg.JWTSecret)
	}
	again, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if again.JWTSecret == cfg.JWTSecret {
		t.Fatal("development secret must not be a fixed value")
	}
	if cfg.TokenTTL != 7*24*time.Hour {
		t.Fatalf("token ttl = %v", cfg.TokenTTL)
	}
	if cfg.Location != time.UTC {
		t.Fatalf("location = %v", cfg.Location)
	}
}

func TestLoadRequiresSecretByDefault(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("TZ", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when neither APP_ENV nor JWT_SECRET is set")
	}

	t.Setenv("JWT_SECRET", "s3cret")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != "prod" || cfg.IsDev() {
		t.Fatalf("env = %q, want prod", cfg.Env)
	}
}

func TestLoadRejectsInvalidCombinations(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"prod without secret", map[string]string{"APP_ENV": "prod", "JWT_SECRET": ""}},
		{"unknown driver", map[string]string{"DB_DRIVER": "oracle"}},
		{"mysql without user", map[string]string{"DB_DRIVER": "mysql", "DB_USER": ""}},
		{"gcs without bucket", map[string]string{"STORAGE_DRIVER": "gcs", "GCS_BUCKET": ""}},
		{"bad time zone", map[string]string{"TZ": "Mars/Olympus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", "dev")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TZ", "UTC")
	t.Setenv("MAX_UPLOAD_BYTES", "2048")
	t.Setenv("AMQP_ENABLED", "yes")
	t.Setenv("RABBITMQ_URL", "amqp://u:p@mq:5672/")
	t.Setenv("PROVIDER_TIMEOUT", "3s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IsDev() || cfg.JWTSecret != "s3cret" || cfg.MaxUploadBytes != 2048 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if !cfg.AMQPEnabled || cfg.AMQPURL != "amqp://u:p@mq:5672/" || cfg.ProviderTimeout != 3*time.Second {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("RATE_LIMIT_BURST", "")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "")

	rl := LoadRateLimitConfig()
	if rl.Capacity != 1 {
		t.Fatalf("capacity = %d, want 1", rl.Capacity)
	}
	if rl.TTL != 5*time.Second {
		t.Fatalf("ttl = %v, want 5s", rl.TTL)
	}
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("CACHE_TTL", "nonsense")
	cc := LoadCacheConfig()
	if !cc.Methods["GET"] || !cc.Methods["HEAD"] || cc.Methods["POST"] {
		t.Fatalf("methods = %v", cc.Methods)
	}
	if cc.TTL != time.Second {
		t.Fatalf("ttl = %v", cc.TTL)
	}
}
