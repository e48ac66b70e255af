// Package rdb is a thin relational access layer. Package builder renders
// escaped SQL from table names, conditions and options; package database runs
// it on pools, leased connections and transactions, with nested transaction
// scopes; Service binds a table to the global database.
package rdb
