/*
Package nexuserr defines the error kinds surfaced by the Nexus core, per the
error handling design: each kind carries a stable short code plus a human
message, and wraps an underlying cause where one exists. Callers match kinds
with errors.As, following the teacher's wrapped-error idiom
(fmt.Errorf("...: %w", err)) rather than bare sentinel strings.
*/
package nexuserr
