package infra

import "testing"

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/tryon_test")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.MaxRetries != 2 {
		t.Fatalf("max retries = %d, want 2", cfg.MaxRetries)
	}
	if cfg.WorkerCount != 4 {
		t.Fatalf("worker count = %d, want 4", cfg.WorkerCount)
	}
	if cfg.GeminiImageModel == "" || cfg.GeminiAuditModel == "" {
		t.Fatalf("model defaults missing: %q %q", cfg.GeminiImageModel, cfg.GeminiAuditModel)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/tryon_test")
	t.Setenv("TRYON_MAX_RETRIES", "5")
	t.Setenv("WORKER_COUNT", "2")
	t.Setenv("GEMINI_IMAGE_MODEL", "custom-image-model")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.MaxRetries != 5 || cfg.WorkerCount != 2 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.GeminiImageModel != "custom-image-model" {
		t.Fatalf("image model = %q", cfg.GeminiImageModel)
	}
}

func TestLoadConfigRejectsZeroRetries(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/tryon_test")
	t.Setenv("TRYON_MAX_RETRIES", "0")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for zero retry budget")
	}
}
