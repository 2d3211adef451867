// Package feed subscribes to the community market data relay and turns its
// zlib-compressed JSON frames into typed messages.
//
// The listener collects frames into timed batches. Within a batch, commodity
// snapshots for the same station are collapsed to the newest one, so a busy
// station uploaded by several players costs one update instead of many.
package feed
