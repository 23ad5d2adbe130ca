// Package database provides SQLite-backed persistence for users, sessions,
// media assets, likes, and comments.
//
// A single *Database wraps the connection pool with a RWMutex so writers
// never interleave, which keeps SQLite happy under concurrent handlers.
// Every operation takes a context and applies its own query timeout, and
// counter mutations (views, likes) happen in SQL so concurrent requests
// never lose updates. The featured flag and the like toggle run inside
// transactions to hold their invariants.
package database
