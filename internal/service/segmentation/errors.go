package segmentation

import "errors"

// Sentinel errors for the segmentation service layer.
var (
	ErrRunInProgress   = errors.New("segment update already running")
	ErrSegmentNotFound = errors.New("segment not found")
	ErrNoRuns          = errors.New("no segment update runs recorded")
)
