// Package store provides SQLite-backed durable storage for run outcomes.
//
// A run is one implementation driven through a sequence of cases under one
// dialect. Every case outcome reported during the run is appended to
// case_outcomes as a canonical JSON report.Record.
//
// # Ordering
//
// Outcomes are ordered by their logical position within the run, never by
// timestamps, so reading a run back yields exactly the order reported.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
