package composite

import "errors"

var (
	// ErrConfiguration reports day and night images that cannot be combined.
	ErrConfiguration = errors.New("composite: configuration error")
	// ErrInvalidArgument reports a negative render size or an opacity
	// outside [0, 1].
	ErrInvalidArgument = errors.New("composite: invalid argument")
)
