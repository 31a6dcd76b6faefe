// Package state persists sync state between runs: per (variant, country)
// availability used for change detection, the timestamp of the last
// successful run, and the location mapping fingerprint.
package state
