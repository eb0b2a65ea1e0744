// Package cache implements the content-addressed element cache (spec
// component D): an ordered list of cache roots, each a directory of
// checksum-named sub-directories containing a task snapshot and, once an
// element finishes, either a result or an error file.
//
// Root order is priority order: Load consults roots front-to-back and stops
// at the first root containing a directory named for the checksum, even if
// that element has not finished yet — an in-progress sibling write must not
// be masked by falling through to a stale completed run in a later root.
// Writes always land in the first root.
//
// Serialization uses encoding/json. The on-disk format only needs to be
// stable and self-describing; nothing ever deserialises a runnable back
// out of a task snapshot, so an opaque binary encoding would buy nothing.
//
// Per-element writer exclusivity is advisory: AcquireLock creates a lock
// file with google/uuid's token written inside it via O_CREATE|O_EXCL, so a
// stale lock left behind by a crashed writer is attributable to the process
// that held it. No third-party file-locking library appears anywhere in the
// example pack, so the exclusivity primitive itself is the one piece of this
// package grounded on the standard library rather than an ecosystem
// dependency.
package cache
