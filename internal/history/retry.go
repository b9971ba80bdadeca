package history

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

const sqliteBusyCode = 5

// busyBackoff lists the pauses between attempts when another process holds
// the database lock. busy_timeout already waits inside SQLite; this covers
// the cases it returns SQLITE_BUSY immediately, such as lock upgrades.
var busyBackoff = []time.Duration{
	10 * time.Millisecond,
	40 * time.Millisecond,
	100 * time.Millisecond,
	200 * time.Millisecond,
}

func isBusy(err error) bool {
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		return coded.Code()&0xff == sqliteBusyCode
	}
	return err != nil && (strings.Contains(err.Error(), "SQLITE_BUSY") || strings.Contains(err.Error(), "database is locked"))
}

func withBusyRetry[T any](ctx context.Context, op func(context.Context) (T, error)) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	for attempt := 0; ; attempt++ {
		value, err := op(ctx)
		if err == nil || !isBusy(err) || attempt == len(busyBackoff) {
			return value, err
		}
		select {
		case <-time.After(busyBackoff[attempt]):
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return withBusyRetry(ctx, func(ctx context.Context) (sql.Result, error) {
		return s.db.ExecContext(ctx, query, args...)
	})
}
