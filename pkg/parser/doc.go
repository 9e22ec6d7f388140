/*
Package parser is a hand-rolled tokenizer and recursive-descent parser for
the Cypher subset Nexus supports: MATCH, OPTIONAL MATCH, CREATE, MERGE,
SET, DELETE/DETACH DELETE, WHERE, RETURN (DISTINCT, ORDER BY, LIMIT, SKIP),
UNWIND, WITH, aggregate calls, list/map literals, property access, $params,
and directed path patterns. There is no parser-generator dependency in the
example pack for this teacher, so this is written the way the teacher
writes its own hand-rolled state machines: a Lexer producing a flat token
stream, and a Parser holding a token cursor with one token of lookahead.

The parser reports the first error it hits with a token position and
stops. There is no recovery, no partial AST on error.
*/
package parser
