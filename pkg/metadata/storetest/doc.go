// Package storetest provides a conformance test suite for metadata store
// implementations.
//
// Every backend (rdb, badger, memory) runs the same suite so that the Share
// Core can rely on identical semantics for uniqueness, ordering, counters
// and transactions whichever store is configured.
//
// Usage:
//
//	func TestConformance(t *testing.T) {
//	    storetest.RunConformanceSuite(t, func(t *testing.T) metadata.Store {
//	        return memory.New()
//	    })
//	}
//
// The factory returns an empty, not yet bootstrapped store. It receives
// *testing.T so it can use t.TempDir() and register t.Cleanup teardown.
package storetest
