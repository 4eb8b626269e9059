package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/principia-matematica/estudo/internal/api"
	"github.com/principia-matematica/estudo/internal/config"
	"github.com/principia-matematica/estudo/internal/localdata"
	"github.com/principia-matematica/estudo/internal/stubserver"
)

// seededConfig brings up a seeded devserver, logs in, stores the token in a
// throwaway data dir, and returns a config pointing the CLI at both.
func seededConfig(t *testing.T) config.Config {
	t.Helper()
	ctx := context.Background()

	dir := t.TempDir()
	db, err := stubserver.OpenDB(ctx, stubserver.DriverSQLite, "file:"+dir+"/dev.db")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := stubserver.NewSQLStore(db)
	if err := stubserver.Seed(ctx, store); err != nil {
		t.Fatalf("seed: %v", err)
	}
	srv := httptest.NewServer(stubserver.NewRouter(store, stubserver.NewAuthService("test-secret"), []string{"*"}))
	t.Cleanup(srv.Close)

	client := api.NewClient(srv.URL)
	token, err := client.Login(ctx, stubserver.DemoEmail, stubserver.DemoPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	local, err := localdata.Open(ctx, dir)
	if err != nil {
		t.Fatalf("open local cache: %v", err)
	}
	local.SetAccessToken(token)
	local.Close()

	cfg := config.FromEnv()
	cfg.APIBaseURL = srv.URL
	cfg.DataDir = dir
	return cfg
}

func TestCoursesCommandPrintsCatalog(t *testing.T) {
	cfg := seededConfig(t)

	cmd := coursesCmd(&cfg)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("courses: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"curso-fundamentos  Fundamentos de Matemática",
		"  Frações",
		"vídeo  vid-fracoes-1  O que é uma fração",
		"lista  lista-fracoes",
		"  Equações",
		"lista  prova-obmep-2019",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
	if lines := strings.Count(got, "\n"); lines < 8 {
		t.Fatalf("expected one entry per line, got %d lines:\n%s", lines, got)
	}
}
