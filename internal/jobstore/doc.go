// Package jobstore persists completed conversion jobs in SQLite.
//
// The store is append-only: jobs are written once, atomically, and never
// mutated or deleted by the workflow. Enumeration is ordered by creation
// time; job identifiers are ULIDs so lexical order matches it.
package jobstore
