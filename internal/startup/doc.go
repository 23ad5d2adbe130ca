// Package startup handles configuration loading, directory validation and
// structured startup/shutdown logging for the catio hub.
//
// Configuration is read from environment variables. The media, thumbnail
// and database directories are validated (created if absent, probed for
// write access) before the server accepts traffic.
package startup
