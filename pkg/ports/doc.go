/*
Package ports defines the driven ports (interfaces) of the recalc engine.

These interfaces decouple the session runtime from external implementations, so
the engine can run against different workbook sources, expression languages,
result stores and result sinks.

# Key Interfaces

  - WorkbookLoader: loads workbook definitions by ID (memory, files, Loam).
  - Evaluator / Program: compiles and runs expression text over typed bindings.
  - ResultStore: persists the final state and log of ended sessions.
  - ResultSink: receives a copy of every result as it is handed off.
  - DistributedLocker: coordinates session ownership across engine replicas.
*/
package ports
