// Package repository binds the executors of package database to a single
// table, adding lookups by primary key, upserts, pagination and transaction
// binding. Calls made with a context carrying a database.TxScope run on the
// scope's transaction.
package repository
