package advice

import "errors"

var (
	// ErrReportsUnavailable means the historical report read failed. The
	// request must surface it rather than return an empty prediction.
	ErrReportsUnavailable = errors.New("reports unavailable")

	ErrInvalidRequest = errors.New("invalid advice request")
)
