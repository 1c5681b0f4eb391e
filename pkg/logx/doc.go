// Package logx is datenbriefd's logging layer over zerolog.
//
// Console lines are human-readable and go to stderr. The optional log file
// gets JSON lines, and warnings can be forwarded to an operator chat
// through a rate-limited alert sink.
package logx
