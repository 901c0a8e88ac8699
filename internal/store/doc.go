// Package store declares the persistence interfaces the rest of the
// application depends on, keeping handlers and domain logic decoupled from
// any particular database.
package store
