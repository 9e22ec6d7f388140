/*
Package txn is the Transaction Manager. It stages node/relationship
creates, updates and deletes per in-flight transaction, then on Commit
runs the sequence from spec 4.4:

  1. validate staged ops against the catalog and index constraints
  2. assign the next LSN
  3. append a commit record to the WAL and fsync
  4. apply the staged ops to the Record Store and Index Manager
  5. hand the committed range to the replication broadcaster
  6. return the LSN to the caller

Commit is a single-writer section, guarded by Manager's commit mutex —
the same dispatch-under-lock shape as the teacher's WarrenFSM.Apply, just
with an explicit multi-step sequence instead of a one-command-at-a-time
Raft apply. If WAL append fails the transaction aborts with no store
mutation; if the store/index apply errors after the WAL append succeeded,
Commit promotes the manager to read-only and returns StoreCorrupt. The WAL
record stays durable, but nothing replays it into the store on restart:
Engine.Open applies no WAL entries.
*/
package txn
