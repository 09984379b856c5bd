// Package domain contains the core business entities of the card service:
// users, cards and refresh-token records, plus the error taxonomy every
// service reports through.
//
// Entities are value snapshots. State changes go through explicit store
// commands (status updates, guarded debits, credits) instead of mutating a
// shared object, so concurrent requests never observe each other's partial
// writes outside a unit of work.
package domain
