package store_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/auditlog/internal/db"
	"github.com/persistorai/auditlog/internal/db/migrations"
	"github.com/persistorai/auditlog/internal/dbpool"
	"github.com/persistorai/auditlog/internal/models"
	"github.com/persistorai/auditlog/internal/store"
	"github.com/persistorai/auditlog/internal/tenancy"
)

// testEnv holds shared test infrastructure (single pool across all tests).
type testEnv struct {
	pool    *dbpool.Pool
	log     *logrus.Logger
	manager *tenancy.Manager
}

var sharedEnv *testEnv

func getTestEnv(t *testing.T) *testEnv {
	t.Helper()

	if sharedEnv != nil {
		return sharedEnv
	}

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()

	pool, err := dbpool.NewPool(ctx, dbURL, dbpool.Options{MaxConns: 8, MinConns: 1})
	if err != nil {
		t.Fatalf("connecting to test DB: %v", err)
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	sharedEnv = &testEnv{
		pool:    pool,
		log:     log,
		manager: tenancy.NewManager(pool, log, 5*time.Second),
	}

	return sharedEnv
}

// newTenant returns a fresh tenant code whose rows are deleted after the test.
func newTenant(t *testing.T) string {
	t.Helper()

	env := getTestEnv(t)
	tenantID := "T" + strings.ToUpper(uuid.NewString()[:8])

	t.Cleanup(func() {
		ctx := context.Background()

		sess, err := env.manager.Acquire(ctx, tenantID)
		if err != nil {
			return
		}
		defer sess.Release()

		tx, err := sess.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return
		}
		defer tx.Rollback(ctx) //nolint:errcheck // best-effort cleanup

		tx.Exec(ctx, "DELETE FROM audit_logs WHERE comp_code = $1", tenantID) //nolint:errcheck // best-effort cleanup
		tx.Commit(ctx)                                                        //nolint:errcheck // best-effort cleanup
	})

	return tenantID
}

// session acquires a tenant-bound session released at the end of the test.
func session(t *testing.T, tenantID string) tenancy.Session {
	t.Helper()

	sess, err := getTestEnv(t).manager.Acquire(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("acquiring session for %s: %v", tenantID, err)
	}
	t.Cleanup(sess.Release)

	return sess
}

func newStores(t *testing.T) (*store.BatchStore, *store.QueryStore) {
	t.Helper()

	base := store.Base{Log: getTestEnv(t).log}

	return store.NewBatchStore(base), store.NewQueryStore(base)
}

func logInput(tenantID, action string) models.LogInput {
	return models.LogInput{CompCode: tenantID, SourceApp: "HR", Action: action}
}
