package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/julienlmr/gameshelf-backend/pkg/migrate"
)

func TestValidateMigrationsDir(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestNotificationsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_notifications.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS notifications",
		"CREATE UNIQUE INDEX IF NOT EXISTS notifications_live_ref_key",
		"WHERE dismissed_at IS NULL AND wishlist_item_id IS NOT NULL",
		"notifications_single_ref_check",
		"DROP TABLE IF EXISTS notifications",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCollectionItemsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_collection_items.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS collection_items",
		"CONSTRAINT collection_items_user_game_key UNIQUE (user_id, game_id)",
		"CONSTRAINT collection_items_buy_check CHECK (NOT buy OR status = 'WISHLIST')",
		"FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE",
		"DROP TABLE IF EXISTS collection_items",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestBuyResetTriggerMigration(t *testing.T) {
	content := readMigration(t, "*_add_wishlist_buy_reset_trigger.sql")

	checks := []string{
		"CREATE OR REPLACE FUNCTION dismiss_wishlist_notifications()",
		"CREATE TRIGGER collection_items_buy_reset",
		"DROP TRIGGER IF EXISTS collection_items_buy_reset ON collection_items",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file matching %q", pattern)
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
