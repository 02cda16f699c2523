package diagnosis

import (
	"fmt"
	"math"
)

// UnknownLabel is returned for a class index outside the label list.
const UnknownLabel = "Unknown"

// Labels is an ordered class list; index i names classifier output i.
type Labels []string

// At returns the label for index i, or UnknownLabel when i is out of range.
func (l Labels) At(i int) string {
	if i < 0 || i >= len(l) {
		return UnknownLabel
	}
	return l[i]
}

// Severity wordings for the five KL grade classes. The web and dashboard
// front-ends have always worded these differently and both are kept.
var (
	WebSeverityLabels = Labels{"Normal", "Low Risk", "Moderate Risk", "High Risk", "Severe Risk"}

	DashboardSeverityLabels = Labels{"Normal", "Doubtful", "Mild", "Moderate", "Severe"}
)

// RiskLabels names the three questionnaire classifier outputs.
var RiskLabels = Labels{"Low Risk", "Moderate Risk", "High Risk"}

// Argmax returns the index of the largest score. Ties go to the lowest index.
// A NaN anywhere in scores makes the output unusable.
func Argmax(scores []float32) (int, error) {
	if len(scores) == 0 {
		return 0, ErrEmptyOutput
	}
	best := 0
	for i, v := range scores {
		if math.IsNaN(float64(v)) {
			return 0, fmt.Errorf("%w at index %d", ErrNaNOutput, i)
		}
		if v > scores[best] {
			best = i
		}
	}
	return best, nil
}
