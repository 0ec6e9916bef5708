// Package main provides the entry point for loomtrace.
//
// loomtrace is a command-line tool that interprets a runtime profiler's
// binary event log and emits distributed-tracing spans and metrics to
// a configurable sink.
package main
