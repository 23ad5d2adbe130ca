// Package hub maintains the live WebSocket fan-out for site events. New
// uploads, moderation decisions, and featured changes are pushed to every
// connected viewer; slow or dead clients are pruned instead of blocking
// the broadcaster.
package hub
