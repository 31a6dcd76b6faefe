// Package mapping resolves which countries are actively sold to and which
// countries each stocking location is allowed to serve.
//
// Three sources combine into one Mapping per run:
//
//   - the markets query yields the active country set (optionally restricted
//     to a configured allow-list, depending on the deployment's country mode)
//   - a locations bulk export yields the known active locations
//   - the delivery profiles query yields fulfillment-zone rules; a location
//     without any usable zone entry falls back to its own declared country
//
// # Change Detection
//
// A structural fingerprint (stable hash over sorted country codes and sorted
// location ids) is persisted across runs. It changes exactly when the
// identity sets change, never when only inventory quantities move, and is
// the signal that forces a FULL sync.
package mapping
