// Package storage wires the Blob Store, Metadata Index, and Touch Batcher
// into the single Facade the Cache Service and Eviction Engine depend on.
//
// Put writes the blob before the metadata record; Delete removes the
// metadata record before the blob. Both orderings bias a crash toward an
// orphaned blob over metadata pointing at a missing blob, since an orphaned
// blob is self-healing (the next Put for that id overwrites it, and the
// Eviction Engine never sees it without a metadata record) while the
// reverse is not.
package storage
