// Package checkpoint decides when partial results are written during a long
// collection run.
//
// The collection loop asks its Policy after every iteration whether the number
// of collected posts has passed the next multiple of the checkpoint interval.
// When it has, the loop hands a snapshot of its list to a Flusher, which
// re-renders the full output set. Partial files already on disk therefore
// survive a crash later in the run.
package checkpoint
