package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadReadsYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte(`
server:
  port: "9090"
postgres:
  url: postgres://file
catalog:
  ttl: 30s
submission:
  feed_size: 5
`)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("POSTGRES_URL", "postgres://env")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Submission.FeedSize != 5 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Postgres.URL != "postgres://env" || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("expected env overrides, got %+v", cfg)
	}
	if got := TTLDuration(cfg.Catalog.TTL, time.Minute); got != 30*time.Second {
		t.Fatalf("expected 30s, got %s", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")
	if _, err := Load(path, false); err != nil {
		t.Fatalf("optional config should fall back to defaults: %v", err)
	}
	if _, err := Load(path, true); err == nil {
		t.Fatalf("expected error for required missing config")
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %s", got)
	}
	if got := TTLDuration("soon", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for bad input, got %s", got)
	}
}

func TestLoadCatalogFillsCourseFromLesson(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	raw := []byte(`
users:
  - id: u1
    name: Alice
lessons:
  - id: l1
    course_id: c1
questions:
  - id: q1
    lesson_id: l1
    options: ["3", "4"]
    correct_answer: "4"
`)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	file, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if len(file.Users) != 1 || len(file.Questions) != 1 {
		t.Fatalf("unexpected catalog: %+v", file)
	}
	if q := file.Questions[0]; q.CourseID != "c1" || q.CorrectAnswer != "4" || len(q.Options) != 2 {
		t.Fatalf("unexpected question: %+v", q)
	}
}

func TestLoadCatalogRejectsOrphanQuestion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("questions:\n  - id: q1\n"), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	if _, err := LoadCatalog(path); err == nil {
		t.Fatalf("expected error for question without lesson")
	}
}
