// Package docstore persists pipeline work items in SQLite and exposes the
// primitives the coordinator's claim protocol is built on.
//
// Every write bumps a store-wide sequence number on the written row, which
// gives TransactionalUpdate its optimistic concurrency check and gives the
// Watcher a pollable change feed. Output keys are append-only: once a phase
// records an artifact, later writes never replace it.
//
// The database is transient job state rather than an archive. Schema
// changes bump the version in schema.go; users clear the database to adopt
// the new schema.
//
// Treat this package as the single source of truth for work item semantics;
// when you add statuses or record fields, update schema.sql and bump
// schemaVersion.
package docstore
