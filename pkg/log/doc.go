// Package log provides structured logging for Nexus using zerolog: a global
// Logger initialized via Init, and component/correlation-id child loggers
// (WithComponent, WithTxID, WithLSN, WithReplicaAddr) used throughout the
// engine instead of ad hoc fmt.Printf.
package log
