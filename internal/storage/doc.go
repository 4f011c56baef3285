// Package storage persists the bot's two durable facts: which group
// conversations it has seen, and who is allowed to broadcast to them.
//
// The backend is a single SQLite file. Every operation is one statement, so
// interleaved writers are safe without explicit transactions.
package storage
