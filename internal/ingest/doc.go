// Package ingest implements the upload pipeline: allow-list check,
// size-bounded streaming receive under a hash-derived storage name,
// metadata probing, thumbnail rendering, persistence, and the new-asset
// broadcast.
//
// The pipeline is strict about not leaving debris: a rejected or failed
// upload removes its partial file, and a failed insert removes the blob
// and thumbnail it had already produced.
package ingest
