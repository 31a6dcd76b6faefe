// Package catalog reconstructs a typed record graph from the flat JSONL
// stream a bulk product export produces.
//
// The export interleaves three record kinds on one stream: variants (with
// their product embedded), standalone products, and per-location inventory
// levels linked to their variant through a __parentId field. The Builder
// makes exactly one pass, discriminating each line by its gid type and
// accumulating results in three maps keyed by gid.
//
// Parse failures are tolerated at line granularity: a malformed line is
// logged and counted, and the rest of the stream still builds.
package catalog
