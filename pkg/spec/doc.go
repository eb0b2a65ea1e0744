// Package spec implements typed field descriptors and the deterministic
// hashing rules built on them: recursive, type-aware hashing of scalar,
// file, and sequence fields; composition of an input record's hash; and the
// node checksum `"{class}_{input_hash}"` that identifies a cached element.
//
// Files are hashed by content in fixed-size chunks, and input records are
// hashed field-by-field rather than through a single stringified
// representation, so two records naming the same file path hash differently
// once the file's bytes change.
package spec
