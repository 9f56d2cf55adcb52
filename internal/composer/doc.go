// Package composer assembles a two-document package: it names the package after the
// content of its sources, compiles both sources concurrently (reusing fresh artifacts)
// and merges the two artifacts into one.
//
// Pipeline states:
//
//	NotStarted -> Compiling -> Merging -> Done
//	                  \            \
//	                   +-> Failed   +-> Failed
//
// The first compile failure cancels the sibling compile's context and fails the
// pipeline immediately; the sibling's result is discarded. There are no retries.
// Concurrent builds of the same sources are not coordinated and race on the same
// derived artifact paths.
package composer
