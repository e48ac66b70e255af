// Package builder renders parameterized SQL and simple CRUD statements
// (select, count, insert, update, delete) from structured options. Values and
// identifiers are escaped through an Escaper backed by a bun dialect; nothing
// in this package performs I/O.
package builder
