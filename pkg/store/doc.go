/*
Package store is the Record Store: fixed-width node and relationship
records held in a single memory-mapped file, plus a growable out-of-line
region for property payloads. Node and relationship ids are slot indices,
so lookup is O(1); deletion pushes a slot onto a per-kind intrusive free
list threaded through the record's own fields, allocation pops it.

Layout of store.dat:

	[ header copy A ][ header copy B ][ node slots ][ rel slots ][ properties ]

The header is double-buffered: two fixed-size copies, each carrying the
LSN it was written at and a CRC32 over its own bytes. Open() reads both
and trusts whichever has a valid CRC and the higher LSN, so a crash
mid-write of one copy never loses the other (the teacher's storage
package gets the same property for free from bbolt's own MVCC b+tree;
here there is no such substrate, so the double-write is explicit).

Edge chains are intrusive: a node's OutHead/InHead point at the first
relationship in each chain, and each relationship carries four chain
pointers (next/prev outgoing at the source, next/prev incoming at the
target). Splicing a new relationship onto a chain and unlinking a
deleted one are both O(1).
*/
package store
