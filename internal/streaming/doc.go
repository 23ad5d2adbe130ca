/*
Package streaming provides timeout-protected writes for HTTP responses.

Slow or disconnected clients can hold handler goroutines indefinitely
when streaming large media blobs. TimeoutWriter wraps
http.ResponseWriter with per-write timeouts, idle detection, chunked
flushing, and client-disconnect detection via the request context.

Typical use goes through Copy:

	config := streaming.DefaultConfig()
	n, err := streaming.Copy(r.Context(), w, file, config)
	if err != nil && !errors.Is(err, streaming.ErrClientGone) {
		logging.Warn("delivery error: %v", err)
	}

The sentinel errors ErrWriteTimeout, ErrClientGone, and
ErrStreamCanceled distinguish slow clients, disconnects, and
programmatic shutdown; only the first is worth alerting on.
*/
package streaming
