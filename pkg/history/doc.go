// Package history records probe runs in a SQLite database so variant
// outcomes can be compared across days. Each run stores one row per
// classified step; the endpoint probe is not recorded.
package history
