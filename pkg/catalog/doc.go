/*
Package catalog interns labels, relationship types and property keys into
dense 32-bit ids, one namespace per kind. Interning is idempotent: calling
Intern* twice with the same name returns the same id; two distinct names
never collide. Ids start at 1 (0 means "unset") and are never reused, even
across process restarts, which is why every successful intern is durable
before the caller sees the new id: a catalog-add WAL entry is appended (via
the Journal callback supplied at construction) before Intern* returns, and
catalog.dat — a bbolt-backed snapshot of the current name<->id mapping — is
updated in the same call.

This mirrors the teacher's storage.BoltStore: one bucket per logical
collection, JSON-free fixed binary values, Update/View transactions for
writes/reads. Unlike the Record Store (pkg/store), the catalog's mapping is
small and read far more often than written, so a plain bbolt file is the
right persistence shape rather than a bespoke mmap layout.
*/
package catalog
