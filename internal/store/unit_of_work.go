package store

import "context"

// Stores groups the stores a unit of work hands to its callback. Every store
// in the group sees the same uncommitted state.
type Stores struct {
	Cards  CardStore
	Users  UserStore
	Tokens TokenStore
}

// UnitOfWork runs a callback atomically: all writes made through the Stores
// it receives are committed together if fn returns nil and discarded
// otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
