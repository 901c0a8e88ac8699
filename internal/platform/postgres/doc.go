// Package postgres implements the persistence interfaces from internal/store
// on PostgreSQL. It owns query construction, row scanning, and the mapping
// of driver errors onto store-level sentinels.
package postgres
