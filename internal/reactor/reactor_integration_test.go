//go:build linux

package reactor_test

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/mickamy/sqlfortify/internal/reactor"
	"github.com/mickamy/sqlfortify/internal/validate"
)

const (
	testUser     = "postgres"
	testPassword = "test"
	testDB       = "test"
)

// startPostgres launches a Postgres container and returns its host:port
// address, the way proxy/mysql/proxy_test.go's startMySQL did for the
// teacher's mysql proxy.
func startPostgres(t *testing.T) string {
	t.Helper()

	ctx := t.Context()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase(testDB),
		postgres.WithUsername(testUser),
		postgres.WithPassword(testPassword),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("get host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("get port: %v", err)
	}
	return fmt.Sprintf("%s:%s", host, port.Port())
}

func startSQLFortify(t *testing.T, upstream string) string {
	t.Helper()

	var lc net.ListenConfig
	lis, err := lc.Listen(t.Context(), "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := lis.Addr().String()
	_ = lis.Close()

	l, err := reactor.New(addr, "tcp", upstream, validate.New())
	if err != nil {
		t.Fatalf("reactor.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := l.Run(ctx); err != nil {
			t.Logf("reactor run: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		_ = l.Close()
	})

	d := net.Dialer{Timeout: 100 * time.Millisecond}
	for range 50 {
		conn, dialErr := d.DialContext(t.Context(), "tcp", addr)
		if dialErr == nil {
			_ = conn.Close()
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	return addr
}

func openDB(t *testing.T, addr string) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", testUser, testPassword, addr, testDB)
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSafeQueryPassesThroughToPostgres(t *testing.T) {
	upstream := startPostgres(t)
	addr := startSQLFortify(t, upstream)
	db := openDB(t, addr)

	var n int
	err := db.QueryRowContext(t.Context(), "SELECT 1").Scan(&n)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestMaliciousQueryIsBlockedWithSyntheticError(t *testing.T) {
	upstream := startPostgres(t)
	addr := startSQLFortify(t, upstream)
	db := openDB(t, addr)

	_, err := db.ExecContext(t.Context(), "CREATE TABLE accounts (id INT, balance INT)")
	require.NoError(t, err)
	_, err = db.ExecContext(t.Context(), "SELECT * FROM accounts WHERE id = 1")
	require.NoError(t, err, "seed learned pattern")
	_, err = db.ExecContext(t.Context(), "SELECT * FROM accounts WHERE id = 2")
	require.NoError(t, err, "seed a second literal so the id value becomes a parameter slot")

	_, err = db.ExecContext(t.Context(), "SELECT * FROM accounts WHERE id = 1 OR 1=1")
	require.Error(t, err, "expected the tautology injection attempt to be rejected")
	require.True(t,
		strings.Contains(err.Error(), "42000") || strings.Contains(err.Error(), "Malformed input"),
		"got %v, want the synthetic SQLFortify rejection", err)
}
