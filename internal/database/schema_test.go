package database

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pipedrill/internal/config"
)

const migrationsDir = "../../migrations"

// Feature: storefront-cart, Property 8: Pending migrations are executed
func TestMigrationFilesExist(t *testing.T) {
	// Check if migrations directory exists
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		t.Fatal("Migrations directory does not exist")
	}

	expectedMigrations := []string{
		"00001_create_cart_slots_table.sql",
	}

	for _, migration := range expectedMigrations {
		path := filepath.Join(migrationsDir, migration)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Errorf("Migration file %s does not exist", migration)
		}
	}
}

func TestMigrationFilesHaveUpAndDown(t *testing.T) {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("Failed to read migrations directory: %v", err)
	}

	sqlFileCount := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		sqlFileCount++
		content, err := os.ReadFile(filepath.Join(migrationsDir, file.Name()))
		if err != nil {
			t.Errorf("Failed to read migration file %s: %v", file.Name(), err)
			continue
		}

		contentStr := string(content)

		for _, directive := range []string{
			"-- +goose Up",
			"-- +goose Down",
			"-- +goose StatementBegin",
			"-- +goose StatementEnd",
		} {
			if !strings.Contains(contentStr, directive) {
				t.Errorf("Migration file %s missing '%s' directive", file.Name(), directive)
			}
		}
	}

	if sqlFileCount == 0 {
		t.Error("No SQL migration files found")
	}
}

func TestCartSlotsTableHasRequiredColumns(t *testing.T) {
	path := filepath.Join(migrationsDir, "00001_create_cart_slots_table.sql")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read cart_slots migration: %v", err)
	}

	contentStr := string(content)
	requiredFragments := []string{
		"CREATE TABLE IF NOT EXISTS cart_slots",
		"slot_key VARCHAR(255) PRIMARY KEY",
		"payload TEXT NOT NULL",
		"updated_at TIMESTAMP NOT NULL",
		"DROP TABLE IF EXISTS cart_slots",
	}

	for _, fragment := range requiredFragments {
		if !strings.Contains(contentStr, fragment) {
			t.Errorf("cart_slots migration missing: %s", fragment)
		}
	}
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db.internal",
		Port:     "5433",
		User:     "cart",
		Password: "p@ss word",
		Database: "storefront",
		Schema:   "carts",
	})

	u, err := url.Parse(dsn)
	if err != nil {
		t.Fatalf("DSN is not a valid URL: %v", err)
	}

	if u.Scheme != "postgres" || u.Host != "db.internal:5433" || u.Path != "/storefront" {
		t.Errorf("unexpected DSN components: %s", dsn)
	}
	if pwd, _ := u.User.Password(); pwd != "p@ss word" {
		t.Errorf("password not preserved through escaping: %q", pwd)
	}
	if u.Query().Get("search_path") != "carts" || u.Query().Get("sslmode") != "disable" {
		t.Errorf("unexpected DSN query: %s", u.RawQuery)
	}
}
