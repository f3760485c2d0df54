// Package segmentation recomputes customer lifecycle segments.
//
// A run loads the lifecycle segment catalogue, purges every lifecycle
// assignment, pages through all customers, classifies each one with the
// lifecycle waterfall and writes the new assignments in bulk batches. The
// whole run executes inside one transaction supplied by a Transactor, so a
// failed run leaves the previous assignments in place.
//
// Runs are serialised: an in-process guard plus an optional distributed
// lease keep a scheduled run and a manual trigger from overlapping.
//
// The service layer depends only on the interfaces in repository.go. It
// never imports net/http or database/sql directly.
package segmentation
