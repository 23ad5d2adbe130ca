// Package janitor sweeps the media and thumbnail directories for files
// no asset references and clears expired sessions from the database.
package janitor
