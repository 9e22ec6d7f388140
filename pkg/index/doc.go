/*
Package index is the Index Manager: label bitmaps, composite property
B-trees, an HNSW approximate-nearest-neighbor index for vector properties,
and a registered-but-unimplemented full-text index kind kept for parity
with the original system's four-index-kind surface.

All mutation goes through Manager.ApplyNode/ApplyRel/RemoveNode/RemoveRel,
called synchronously inside the
Transaction Manager's commit path (pkg/txn), never concurrently with a
read of the same label/key pair — the commit lock in pkg/txn is what makes
that true, this package does not take its own lock around a whole
transaction's worth of index writes.

Label bitmaps use github.com/RoaringBitmap/roaring/v2, the compressed
bitmap library the wider example pack (erigon) already depends on.
Property B-trees use github.com/google/btree, keyed on a composite
byte-encoding of (value kind, value bytes) so range scans stay ordered
within a kind and distinct kinds never compare equal.
*/
package index
