package store

import "context"

// Open picks PostgreSQL when dsn is set and SQLite under dir otherwise.
func Open(ctx context.Context, dsn, dir string) (UserRepository, error) {
	if dsn != "" {
		return OpenPostgres(ctx, dsn)
	}
	return OpenSQLite(dir)
}
