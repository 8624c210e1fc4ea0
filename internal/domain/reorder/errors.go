package reorder

import "errors"

// Sentinel errors for reorder operations.
var (
	ErrIndexOutOfRange = errors.New("reorder index out of range")
	ErrNothingToUndo   = errors.New("nothing to undo")
)
