package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/vmatch/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	"VMATCH_CONFIG",
	"VMATCH_ENV_FILE",
	"VMATCH_ADDR",
	"VMATCH_LOG_LEVEL",
	"VMATCH_STORAGE__DRIVER",
	"VMATCH_STORAGE__DSN",
	"VMATCH_MATCHING__NOTIFY_TOP_K",
	"VMATCH_MATCHING__WEIGHTS__SKILLS",
	"VMATCH_MATCHING__WEIGHTS__LOCATION",
	"VMATCH_NOTIFY__QUEUE_SIZE",
	"VMATCH_CHAT__API_KEY",
	"VMATCH_REDIS__TTL",
}

func clearConfigEnvVars() {
	for _, k := range configEnvVars {
		_ = os.Unsetenv(k)
	}
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Matching.NotifyTopK, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When loading config with nested environment variables", func() {
			_ = os.Setenv("VMATCH_ADDR", ":8080")
			_ = os.Setenv("VMATCH_MATCHING__NOTIFY_TOP_K", "3")
			_ = os.Setenv("VMATCH_NOTIFY__QUEUE_SIZE", "64")
			_ = os.Setenv("VMATCH_REDIS__TTL", "90s")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Matching.NotifyTopK, convey.ShouldEqual, 3)
				convey.So(cfg.Notify.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.Redis.TTL, convey.ShouldEqual, 90*time.Second)
				convey.So(cfg.Matching.CandidatePoolSize, convey.ShouldEqual, 20)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			path := writeTemp(t, "config.yaml", `
addr: ":9090"
log_format: json
storage:
  driver: sqlite
  dsn: /tmp/vmatch.db
matching:
  notify_top_k: 2
  weights:
    skills: 30
    location: 20
    interests: 20
    availability: 15
    experience: 15
`)
			_ = os.Setenv("VMATCH_CONFIG", path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.Storage.Driver, convey.ShouldEqual, "sqlite")
				convey.So(cfg.Matching.NotifyTopK, convey.ShouldEqual, 2)
				convey.So(cfg.Matching.Weights.Skills, convey.ShouldEqual, 30)
				convey.So(cfg.Matching.MaxLimit, convey.ShouldEqual, 100)
			})

			convey.Convey("And env vars take precedence over the file", func() {
				_ = os.Setenv("VMATCH_ADDR", ":7070")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
			})
		})

		convey.Convey("When a .env file is provided", func() {
			path := writeTemp(t, "vmatch.env", "VMATCH_CHAT__API_KEY=secret\nVMATCH_ADDR=:6060\n")
			_ = os.Setenv("VMATCH_ENV_FILE", path)
			_ = os.Setenv("VMATCH_ADDR", ":5050")

			cfg, err := config.Load(ctx)

			convey.Convey("Then its values are used without overriding the environment", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Chat.APIKey, convey.ShouldEqual, "secret")
				convey.So(cfg.Addr, convey.ShouldEqual, ":5050")
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("VMATCH_CONFIG", "/non/existent/file.yaml")
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the explicit env file does not exist", func() {
			_ = os.Setenv("VMATCH_ENV_FILE", "/non/existent/.env")
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the result is invalid", func() {
			_ = os.Setenv("VMATCH_MATCHING__WEIGHTS__SKILLS", "90")
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When a numeric env var is malformed", func() {
			_ = os.Setenv("VMATCH_NOTIFY__QUEUE_SIZE", "lots")
			_, err := config.Load(ctx)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
