// Package database executes the statements rendered by package builder.
//
// DB wraps a pooled Bun database; Connection pins work to one leased
// connection; Transaction runs on a connection inside BEGIN and rejects every
// statement once committed or rolled back. All three embed Operator, so the
// same Query, Select, Insert, Update, Delete and Count calls work on each.
//
// BeginTransactionScope lets nested units of work share one transaction
// through a TxScope, committed by the outermost call and rolled back by the
// first failure. ScriptRunner applies directories of SQL files, and InitDB
// wires configuration, connection and scripts into the global DB.
package database
