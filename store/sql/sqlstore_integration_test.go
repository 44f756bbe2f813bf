package sqlstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-dirsync/core"
	dirsyncmigrations "github.com/goliatone/go-dirsync/migrations"
	sqlstore "github.com/goliatone/go-dirsync/store/sql"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "go-dirsync-tests"
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:dirsync-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	ctx := context.Background()
	_, err = dirsyncmigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != dirsyncmigrations.DialectSQLite {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, dirsyncmigrations.WithValidationTargets(dirsyncmigrations.DialectSQLite))
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	var tableName string
	if err := client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"sync_runs",
	).Scan(context.Background(), &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "sync_runs" {
		t.Fatalf("expected sync_runs table, got %q", tableName)
	}
}

func TestRunStore_CreateCompleteRoundTrip(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.RunStore()
	if store == nil {
		t.Fatalf("expected run store from factory")
	}

	created, err := store.Create(ctx, core.SyncRun{})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generated run id")
	}
	if created.Status != core.RunStatusRunning {
		t.Fatalf("expected running status, got %q", created.Status)
	}
	if created.StartedAt.IsZero() {
		t.Fatalf("expected started_at to be set")
	}

	finished := time.Now().UTC()
	completed, err := store.Complete(ctx, core.SyncRun{
		ID:         created.ID,
		Status:     core.RunStatusSucceeded,
		FinishedAt: &finished,
		Groups:     core.CollectionStats{Processed: 4, Created: 2, Updated: 1, Skipped: 1},
		Users:      core.CollectionStats{Processed: 10, Created: 5, Updated: 3, Skipped: 1, Failed: 1},
		Warnings: []core.RunWarning{
			{Collection: core.CollectionUsers, EntityID: "u9", Message: "save record failed"},
		},
	})
	if err != nil {
		t.Fatalf("complete run: %v", err)
	}
	if completed.Status != core.RunStatusSucceeded {
		t.Fatalf("expected succeeded status, got %q", completed.Status)
	}

	fetched, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if fetched.Groups.Created != 2 || fetched.Users.Failed != 1 {
		t.Fatalf("unexpected stats: groups=%+v users=%+v", fetched.Groups, fetched.Users)
	}
	if fetched.FinishedAt == nil {
		t.Fatalf("expected finished_at persisted")
	}
	if len(fetched.Warnings) != 1 {
		t.Fatalf("expected one persisted warning, got %d", len(fetched.Warnings))
	}
	warning := fetched.Warnings[0]
	if warning.Collection != core.CollectionUsers || warning.EntityID != "u9" {
		t.Fatalf("unexpected warning: %+v", warning)
	}
}

func TestRunStore_CompleteUnknownRunFails(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}

	_, err = factory.RunStore().Complete(ctx, core.SyncRun{ID: "missing", Status: core.RunStatusFailed})
	if err == nil {
		t.Fatalf("expected error completing unknown run")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestRunStore_ListFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.RunStore()

	base := time.Now().UTC().Add(-time.Hour)
	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		created, createErr := store.Create(ctx, core.SyncRun{
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if createErr != nil {
			t.Fatalf("create run %d: %v", i, createErr)
		}
		ids = append(ids, created.ID)
	}

	finished := time.Now().UTC()
	if _, err := store.Complete(ctx, core.SyncRun{
		ID:         ids[0],
		Status:     core.RunStatusFailed,
		FinishedAt: &finished,
		LastError:  "target unreachable",
	}); err != nil {
		t.Fatalf("complete first run: %v", err)
	}

	runs, err := store.List(ctx, core.SyncRunFilter{})
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].ID != ids[2] || runs[2].ID != ids[0] {
		t.Fatalf("expected newest-first ordering, got %v", []string{runs[0].ID, runs[1].ID, runs[2].ID})
	}

	failed, err := store.List(ctx, core.SyncRunFilter{Status: core.RunStatusFailed})
	if err != nil {
		t.Fatalf("list failed runs: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != ids[0] {
		t.Fatalf("expected the failed run only, got %+v", failed)
	}
	if failed[0].LastError != "target unreachable" {
		t.Fatalf("expected persisted last error, got %q", failed[0].LastError)
	}

	limited, err := store.List(ctx, core.SyncRunFilter{Limit: 2})
	if err != nil {
		t.Fatalf("list limited runs: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 runs with limit, got %d", len(limited))
	}
}
