package diagnosis

import (
	"errors"
	"fmt"
)

var (
	// ErrInputRejected covers input refused before it reaches a classifier.
	ErrInputRejected = errors.New("input rejected")

	// ErrPrediction covers classifier failures and unusable outputs.
	ErrPrediction = errors.New("prediction failed")

	// ErrEmptyOutput is the ErrPrediction case of a zero-length output.
	ErrEmptyOutput = fmt.Errorf("%w: empty prediction result", ErrPrediction)

	// ErrNaNOutput is the ErrPrediction case of a score that is not a number.
	ErrNaNOutput = fmt.Errorf("%w: non-numeric prediction result", ErrPrediction)
)
