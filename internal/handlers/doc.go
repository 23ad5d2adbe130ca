// Package handlers implements the HTTP API for catio.cam.
//
// Handlers fall into five groups: session and identity (auth proxy
// callback, cookie resolution, role gating), asset browsing (listings,
// detail, likes, comments), upload (streaming multipart ingest), media
// delivery (range-capable blob and thumbnail serving), and moderation
// (approve, reject, feature, delete). Health and stats endpoints round
// out the set.
//
// All responses are JSON except the media routes, which stream bytes
// through the delivery package. Authorization state travels on the
// request context via WithUser and is read back with UserFrom.
package handlers
