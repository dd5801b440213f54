package storage

// Package storage persists whole-schedule snapshots so the timeline
// survives restarts.
//
// It currently supports:
//   - "file": one JSON document, written atomically
//   - "sqlite": normalized tables, replaced transactionally per save
