/*
Package domain contains the core models of the recalc engine.

It defines the workbook definition consumed at session start, the typed values
that flow between actors, the table model, and the session artifacts handed off
when a session ends. This package is kept free of I/O and persistence concerns.

# Key Entities

  - Workbook: the declarative graph of variables, expressions, tables and triggers.
  - Value: a tagged union over the five variable types.
  - DataTable: the row/column table carried as a JSON-encoded variable value.
  - VariableState / LogLine: the snapshot and log records produced by a session.
  - EvaluationRequest / EvaluationResult: the one-shot evaluation contract.
*/
package domain
