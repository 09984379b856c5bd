// Package service contains the application use cases of the cards API: the
// transfer ledger, card provisioning and administration, and user management.
// It orchestrates domain entities and the persistence interfaces defined in
// internal/store without depending on any concrete store implementation.
//
// Key components:
//
// 1. Service Interfaces:
//   - LedgerService moves money between two cards of the same holder
//   - CardService issues, lists, blocks, expires and deletes cards
//   - UserService registers holders and bootstraps the administrator
//
// 2. Transactions:
//   - Operations that read and then write several rows run inside a
//     store.UnitOfWork so either all of their writes land or none do
//
// 3. Error Handling:
//   - Expected failures are *domain.Error values (domain.NotFound,
//     domain.Forbidden, ...), which the API layer maps to HTTP statuses
//   - Everything else (store outages, crypto failures) is wrapped in a
//     ServiceError so callers still reach the cause with errors.Is/As
//
// Plaintext card numbers enter the package only as request arguments. They are
// normalized, encrypted and never logged.
package service
