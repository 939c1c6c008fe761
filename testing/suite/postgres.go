package suite

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	tc "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rocketscienceinc/tictactoe-arena/internal/repository/storage"
)

const (
	postgresImage    = "postgres:16-alpine"
	postgresDatabase = "arena"
	postgresUser     = "arena"
	postgresPassword = "arena"
)

type PostgresSuite struct {
	*testing.T
	Logger *slog.Logger

	Pool *pgxpool.Pool
	DSN  string
}

// NewPostgres - starts a postgres container, applies the migrations and returns a pool bound to it.
func NewPostgres(t *testing.T) (context.Context, *PostgresSuite) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), maxWaitDuration)
	t.Cleanup(func() {
		cancel()
	})

	logger := newLogger()

	container, err := tcpostgres.Run(ctx,
		postgresImage,
		tcpostgres.WithDatabase(postgresDatabase),
		tcpostgres.WithUsername(postgresUser),
		tcpostgres.WithPassword(postgresPassword),
		tc.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("could not start postgres container: %v", err)
	}

	t.Cleanup(func() {
		if err := tc.TerminateContainer(container); err != nil {
			t.Errorf("could not terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("could not get postgres connection string: %v", err)
	}

	if err = storage.Migrate(dsn, logger); err != nil {
		t.Fatalf("could not migrate postgres: %v", err)
	}

	st, err := storage.NewPostgresStorage(ctx, dsn, 5)
	if err != nil {
		t.Fatalf("could not connect to postgres: %v", err)
	}

	t.Cleanup(func() {
		_ = st.Close()
	})

	return ctx, &PostgresSuite{
		T:      t,
		Logger: logger,
		Pool:   st.Pool,
		DSN:    dsn,
	}
}
