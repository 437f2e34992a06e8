package anomaly

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrEmptyDataset   = errors.New("no usable training records")
	ErrNotTrained     = errors.New("model not trained")
	ErrTrainingFailed = errors.New("training failed")
)
