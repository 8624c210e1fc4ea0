package simulate

import "errors"

// Error constants.
var (
	ErrUnhealthy        = errors.New("service is not healthy")
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrEmptyCatalog     = errors.New("catalog has no movies")
	ErrDuplicateMovie   = errors.New("catalog lists a movie twice")
	ErrOrderMismatch    = errors.New("ranking does not match the preference order")
	ErrScoreOrder       = errors.New("scores are not monotonic")
	ErrTooManySteps     = errors.New("insertion took more comparisons than a binary search allows")
	ErrNotEmpty         = errors.New("ranking is not empty")
)
