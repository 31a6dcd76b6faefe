// Package syncer orchestrates one sync run end to end and decides between
// full and incremental strategies from the mapping change signal and the
// last checkpoint.
package syncer
