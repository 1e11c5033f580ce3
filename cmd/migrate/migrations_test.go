package main

import (
	"io/fs"
	"path"
	"strings"
	"testing"

	"github.com/pressly/goose/v3"

	"booknotes/db"
)

func TestCollectMigrations_ParsesEmbeddedMigrations(t *testing.T) {
	goose.SetBaseFS(db.Migrations)
	t.Cleanup(func() { goose.SetBaseFS(nil) })

	migrations, err := goose.CollectMigrations(db.MigrationsDir, 0, goose.MaxVersion)
	if err != nil {
		t.Fatalf("expected migrations to parse, got error: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("expected at least one migration")
	}
}

func TestSQLMigrations_HaveGooseDirectives(t *testing.T) {
	entries, err := fs.ReadDir(db.Migrations, db.MigrationsDir)
	if err != nil {
		t.Fatalf("ReadDir(%s): %v", db.MigrationsDir, err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		b, err := fs.ReadFile(db.Migrations, path.Join(db.MigrationsDir, e.Name()))
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", e.Name(), err)
		}
		s := string(b)
		if !strings.Contains(s, "-- +goose Up") {
			t.Fatalf("%s missing '-- +goose Up'", e.Name())
		}
		if !strings.Contains(s, "-- +goose Down") {
			t.Fatalf("%s missing '-- +goose Down'", e.Name())
		}
	}
}
