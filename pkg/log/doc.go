/*
Package log provides structured logging for Fabrik using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper
functions for common logging patterns. All logs include timestamps and
support filtering by severity level for production debugging.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Component Loggers                   │          │
	│  │  - WithComponent("eviction")                │          │
	│  │  - WithComponent("touchbatcher")            │          │
	│  │  - WithRunID("a1b2c3")                      │          │
	│  │  - WithObjectID("4a5f...")                  │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │  {"level":"info","component":"eviction",    │          │
	│  │   "time":"2026-01-01T00:00:00Z",            │          │
	│  │   "message":"eviction run complete"}        │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: os.Stdout})

	evictionLog := log.WithComponent("eviction")
	evictionLog.Info().Int64("bytes_evicted", n).Msg("eviction run complete")

	runLog := log.WithRunID(runID)
	runLog.Warn().Err(err).Msg("candidate eviction failed, continuing")

# Log Levels

Debug is for development-only detail, Info is the default production level,
Warn covers storage I/O and eviction-candidate failures that should continue,
Error covers config-reload failures and other conditions an operator should
act on, and Fatal is reserved for startup failures (cannot create cache
directory, cannot open the metadata index).

# Design Patterns

The global-logger pattern means every package reaches the same configured
sink without threading a logger through every constructor; component loggers
add a single "component" field so log aggregation can filter by subsystem
without parsing message text.
*/
package log
