// Package postgres provides the PostgreSQL implementation of the task store
// defined in internal/store, together with the embedded schema migrations.
// It handles query execution, row mapping between domain tasks and database
// records, and translation of PostgreSQL errors into store errors.
package postgres
