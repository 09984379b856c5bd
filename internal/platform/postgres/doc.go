// Package postgres provides PostgreSQL implementations of the store
// interfaces defined in internal/store, the SQL unit of work, and the
// embedded goose migrations that create the users, cards and
// refresh_tokens tables.
//
// Balance changes are single conditional UPDATE statements; the
// balance >= 0 CHECK constraint backs the guarded debit at the schema level.
package postgres
