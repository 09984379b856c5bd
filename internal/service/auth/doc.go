// Package auth implements the session engine: JWT signing and validation with
// separate access and refresh keys, bcrypt password checks, and the refresh
// token lifecycle (issue, rotate, revoke) backed by a store.TokenStore.
package auth
