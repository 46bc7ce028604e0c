package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the part of *pgxpool.Pool the repository uses.
type DB interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string,
		rows pgx.CopyFromSource) (int64, error)
}

type Postgres struct {
	db           DB
	pingTimeout  time.Duration
	pingAttempts int
	log          *slog.Logger
}

func New(db DB, pingTimeout time.Duration) *Postgres {
	return &Postgres{
		db:           db,
		pingTimeout:  pingTimeout,
		pingAttempts: 3,
		log:          slog.With("component", "db"),
	}
}

func (p *Postgres) Ping(ctx context.Context) error {
	ticker := time.NewTicker(p.pingTimeout)
	defer ticker.Stop()

	var err error
	for i := 1; i <= p.pingAttempts; i++ {
		// a ping to an unreachable server hangs, so every attempt is bounded
		// by the interval between attempts
		pingCtx, cancel := context.WithTimeout(ctx, p.pingTimeout-10*time.Millisecond)
		err = p.db.Ping(pingCtx)
		cancel()

		if err == nil {
			return nil
		}

		p.log.Info("ping attempt was not successful", "attempt", i, "error", err)

		if i == p.pingAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	return err
}
