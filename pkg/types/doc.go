/*
Package types defines the core data structures shared across Nexus.

This package contains the fundamental value types that every other package in
the engine operates on: the tagged Value union, graph entities (Node,
Relationship), the catalog's interned identifiers, transaction staging
records, and WAL entry shapes. These types carry no behavior beyond small
helpers (comparison, encoding); the packages that own a concern (pkg/store,
pkg/txn, pkg/wal, ...) build their logic on top of them.

# Core Types

Graph model:
  - Node: 64-bit id, label set, property map, edge-chain heads
  - Relationship: 64-bit id, type, endpoints, property map, chain pointers
  - Value: tagged union over null/bool/i64/f64/string/list/map/point/temporal/bytes
  - Row: ordered Values with a sibling column schema

Catalog:
  - Label, RelType, PropertyKey: interned name<->id pairs, separate namespaces

Transactions and the log:
  - Transaction: staged creates/updates/deletes plus a list of catalog additions
  - WALEntry: LSN, operation tag, payload, CRC32

All types here are plain exported structs with no package-level state, in
keeping with the rest of the engine: no ambient singletons, construct and
pass explicitly.
*/
package types
