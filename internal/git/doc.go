// Package git shells out to the system git binary for the clone,
// checkout, pull and status operations the workspace tool needs.
package git
