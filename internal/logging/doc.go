// Package logging provides leveled logging for the catio hub.
//
// Levels are controlled via the LOG_LEVEL environment variable
// (debug, info, warn, error) or the DEBUG shortcut. The default
// level is info.
package logging
