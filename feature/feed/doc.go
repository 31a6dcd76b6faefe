// Package feed turns projected (variant, country) rows into per-country
// availability files and pushes them to the object store. Full syncs rebuild
// files and reconcile orphans on both sides; incremental syncs update files
// in place and never delete.
package feed
