package main

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/Aziraphal/smartportfolio/internal/config"
	"github.com/Aziraphal/smartportfolio/internal/handlers"
	"github.com/Aziraphal/smartportfolio/internal/platforms"
	"github.com/Aziraphal/smartportfolio/internal/seo"
	"github.com/DATA-DOG/go-sqlmock"
)

func TestListenAddr_Default(t *testing.T) {
	if got := listenAddr(config.Config{}); got != ":18911" {
		t.Fatalf("expected default addr :18911, got %q", got)
	}
}

func TestListenAddr_FromConfig(t *testing.T) {
	cfg, err := config.Load(func(k string) string {
		switch k {
		case "DATABASE_URL":
			return "postgres://example"
		case "PORT":
			return " 12345 "
		}
		return ""
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := listenAddr(cfg); got != ":12345" {
		t.Fatalf("expected addr :12345, got %q", got)
	}
}

func TestParseIntervalFromEnv(t *testing.T) {
	def := 7 * time.Second

	if got := parseIntervalFromEnv(func(string) string { return "" }, "X", def); got != def {
		t.Fatalf("expected default, got %s", got)
	}
	if got := parseIntervalFromEnv(func(string) string { return "0" }, "X", def); got != def {
		t.Fatalf("expected default on 0, got %s", got)
	}
	if got := parseIntervalFromEnv(func(string) string { return "-1" }, "X", def); got != def {
		t.Fatalf("expected default on -1, got %s", got)
	}
	if got := parseIntervalFromEnv(func(string) string { return "abc" }, "X", def); got != def {
		t.Fatalf("expected default on non-int, got %s", got)
	}
	if got := parseIntervalFromEnv(func(string) string { return "3" }, "X", def); got != 3*time.Second {
		t.Fatalf("expected 3s, got %s", got)
	}
}

func TestBuildRouter_HealthOK(t *testing.T) {
	r := buildRouter(handlers.New(nil))

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if body := rr.Body.String(); body == "" || body[0] != '{' {
		t.Fatalf("expected json response, got %q", body)
	}
}

func TestNewHandler_DefaultCredentialsFromConfig(t *testing.T) {
	cfg := config.Config{GitHubToken: "gh", BehanceAPIKey: "bk", SyncConcurrency: 3, SyncTimeout: time.Second}
	h := newHandler(nil, cfg, func(string) string { return "" })

	svc := h.Service()
	if d := svc.Defaults[platforms.GitHub]; d.AppToken != "gh" || d.AccessToken != "" || svc.Defaults[platforms.Behance].APIKey != "bk" {
		t.Fatalf("unexpected defaults %+v", svc.Defaults)
	}
	if _, ok := svc.Defaults[platforms.Dribbble]; ok {
		t.Fatalf("dribbble default should be absent without a token")
	}
	if svc.Runner.Concurrency != 3 || svc.Runner.Timeout != time.Second {
		t.Fatalf("runner not configured from cfg: %+v", svc.Runner)
	}
	if svc.Optimizer != nil {
		t.Fatalf("optimizer should be nil without an OpenAI key")
	}
}

func TestNewHandler_ChunkPauseFromConfig(t *testing.T) {
	base := config.Config{OpenAIAPIKey: "sk", SyncConcurrency: 1, SyncTimeout: time.Second}

	cfg := base
	cfg.SEOChunkPause = 250 * time.Millisecond
	if o := newHandler(nil, cfg, func(string) string { return "" }).Service().Optimizer; o == nil || o.ChunkPause != 250*time.Millisecond {
		t.Fatalf("expected configured chunk pause, got %+v", o)
	}

	cfg = base
	cfg.SEOChunkPause = 0
	if o := newHandler(nil, cfg, func(string) string { return "" }).Service().Optimizer; o == nil || o.ChunkPause != seo.NoChunkPause {
		t.Fatalf("zero chunk pause should disable pausing, got %+v", o)
	}
}

func TestRun_Smoke_NoRealListen(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectPing()

	stop := make(chan os.Signal, 1)
	stop <- os.Interrupt

	var migratedFrom, addr string
	d := deps{
		getenv: func(k string) string {
			switch k {
			case "DATABASE_URL":
				return "postgres://example"
			case "AUTO_SYNC_ENABLED":
				// keep workers disabled for deterministic tests
				return "false"
			case "PORT":
				return " 9000 "
			}
			return ""
		},
		openDB: func(driverName, dataSourceName string) (*sql.DB, error) {
			_ = driverName
			_ = dataSourceName
			return db, nil
		},
		migrateUp: func(_ *sql.DB, src string) error {
			migratedFrom = src
			return nil
		},
		listenAndServe: func(srv *http.Server) error {
			addr = srv.Addr
			// simulate a clean shutdown
			return http.ErrServerClosed
		},
		stopCh: stop,
	}

	if err := run(d); err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	if migratedFrom != "file://db/migrations" {
		t.Fatalf("unexpected migrations source %q", migratedFrom)
	}
	if addr != ":9000" {
		t.Fatalf("expected server addr from config, got %q", addr)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

func TestDefaultDeps_HasRequiredFields(t *testing.T) {
	d := defaultDeps()
	if d.getenv == nil || d.openDB == nil || d.migrateUp == nil || d.listenAndServe == nil || d.notify == nil {
		t.Fatalf("expected all default deps to be non-nil: %#v", d)
	}
}

func TestStartAutoSyncWorker_EnabledButCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // ensure the worker exits immediately

	startAutoSyncWorker(ctx, handlers.New(nil), time.Second)
	startAutoSyncWorker(ctx, nil, time.Second)
}

func TestRun_MissingDatabaseURL(t *testing.T) {
	err := run(deps{
		getenv: func(string) string { return "" },
		openDB: func(string, string) (*sql.DB, error) {
			t.Fatalf("openDB should not be called")
			return nil, nil
		},
	})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestRun_MissingOpenDB(t *testing.T) {
	err := run(deps{
		getenv: func(k string) string {
			if k == "DATABASE_URL" {
				return "postgres://example"
			}
			return ""
		},
		openDB:         nil,
		listenAndServe: func(*http.Server) error { return http.ErrServerClosed },
	})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestMigrateUp_NilDB(t *testing.T) {
	if err := migrateUp(nil, ""); err == nil {
		t.Fatalf("expected error")
	}
}
