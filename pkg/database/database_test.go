package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"testing/fstest"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jis87-63/moz-digital-store/pkg/logger"
)

// --- retry helpers ---

func TestRetryBackoff(t *testing.T) {
	for attempt, base := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second} {
		for i := 0; i < 20; i++ {
			d := retryBackoff(attempt)
			assert.GreaterOrEqual(t, d, base*3/4)
			assert.LessOrEqual(t, d, base*5/4)
		}
	}
}

func TestIsConnectionError(t *testing.T) {
	assert.False(t, isConnectionError(nil))
	assert.True(t, isConnectionError(errors.New("dial: connection refused")))
	assert.False(t, isConnectionError(errors.New(`syntax error at or near "TABLE"`)))
}

// --- RunMigrations ---

func migrationsFS() fstest.MapFS {
	return fstest.MapFS{
		"001_create_users.up.sql":   {Data: []byte("CREATE TABLE users (id TEXT PRIMARY KEY);")},
		"001_create_users.down.sql": {Data: []byte("DROP TABLE users;")},
		"002_add_phone.up.sql":      {Data: []byte("ALTER TABLE users ADD COLUMN phone TEXT;")},
	}
}

func TestRunMigrations_AppliesPendingInOrder(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	mock.ExpectQuery("SELECT EXISTS").WithArgs("001_create_users.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	mock.ExpectQuery("SELECT EXISTS").WithArgs("002_add_phone.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("ALTER TABLE users ADD COLUMN phone").
		WillReturnResult(pgxmock.NewResult("ALTER", 0))
	mock.ExpectExec("INSERT INTO schema_migrations").WithArgs("002_add_phone.up.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	err = RunMigrations(context.Background(), mock, migrationsFS(), logger.Discard())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_SQLErrorIsNotRetried(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnError(errors.New(`permission denied for schema public`))

	err = RunMigrations(context.Background(), mock, migrationsFS(), logger.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	require.NoError(t, mock.ExpectationsWereMet())
}

// --- TraceOperation ---

func TestTraceOperation_SlowQueryLogged(t *testing.T) {
	var buf bytes.Buffer
	SetSlowQueryLogging(time.Nanosecond, slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	_, end := TraceOperation(context.Background(), SystemMongo, "products.find", `{"categoryId":"c1"}`)
	time.Sleep(time.Millisecond)
	end(errors.New("cursor killed"))

	out := buf.String()
	assert.Contains(t, out, "slow query detected")
	assert.Contains(t, out, "db_system=mongodb")
	assert.Contains(t, out, "cursor killed")
}

func TestTraceQuery_DisabledSlowLog(t *testing.T) {
	var buf bytes.Buffer
	SetSlowQueryLogging(0, slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	ctx, end := TraceQuery(context.Background(), "GetUser", "SELECT 1")
	require.NotNil(t, ctx)
	end(nil)

	assert.Zero(t, buf.Len())
}

// --- PoolStatsCollector ---

func TestPoolStatsCollector_Describe(t *testing.T) {
	c := NewPoolStatsCollector(nil, "storefront")

	ch := make(chan *prometheus.Desc, 16)
	c.Describe(ch)
	close(ch)

	var names []string
	for d := range ch {
		names = append(names, d.String())
	}
	assert.Len(t, names, 8)
	assert.Contains(t, names[0], "db_pool_acquired_connections")
}
