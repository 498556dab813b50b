// Package runtime implements the session actor graph.
//
// A Session actor builds the graph from a workbook: one DataVariable actor per
// variable key, one Expression actor per expression or trigger, one DataTable
// actor per table, plus a SessionState snapshot store and a SessionLogger.
// Actors only talk through the typed clients in this package, which issue
// request/reply calls on an actor.System.
package runtime
