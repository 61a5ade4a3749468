// Package buffer provides the storage primitives of the rPPG pipeline: a
// generic fixed-capacity [Ring] that keeps the most recent values in arrival
// order, and a reusable float64 [Buffer] with a [Pool] for scratch signals
// derived from ring snapshots.
//
// Ring is not safe for concurrent use; owners serialize access.
package buffer
