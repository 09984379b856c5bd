// Package store defines the persistence contracts of the card service.
//
// Interfaces here are implemented by internal/platform/postgres (production),
// internal/platform/memory (development and tests) and, for refresh tokens,
// internal/platform/redis. Implementations translate backend failures into
// the sentinel errors declared in errors.go so services never inspect driver
// errors directly.
//
// Multi-step operations that must be atomic go through a UnitOfWork. The
// Postgres implementation wraps RunInTransaction; the in-memory one
// serializes units and restores a snapshot on failure.
package store
