// Package cowstr provides a copy-on-write string value and the sample
// corpus used to compare it against eagerly copied buffers.
//
// # Overview
//
// A Value starts either Borrowed, pointing at a shared immutable string, or
// Owned, holding its own byte buffer. Promoting a borrowed Value copies the
// content exactly once; promoting an owned Value is free.
//
//	v := cowstr.Borrowed(cowstr.Corpus) // no copy
//	v.Append(cowstr.Corpus)             // copy on promote, then grow
//
// # Cost model
//
//   - Borrowed: O(1), never allocates.
//   - Owned: one O(n) allocation and copy.
//   - Append on either: the same reallocation once mutation is needed.
//
// A Value that is never mutated costs nothing to construct borrowed, while
// one that is mutated ends up paying the same as an owned buffer.
package cowstr
