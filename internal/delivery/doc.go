// Package delivery serves stored media blobs over HTTP with single-part
// Range support. Open-ended ranges are answered with a bounded window so
// a seek does not commit the server to streaming the rest of the file,
// and all writes go through the timeout-protected streaming writer.
package delivery
