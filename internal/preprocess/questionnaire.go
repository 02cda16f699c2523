package preprocess

import "strconv"

const (
	// QuestionCount is the number of yes/no questions asked.
	QuestionCount = 6
	// FeatureCount is the width of the questionnaire classifier input. The
	// model was trained on an 8 column schema; the last two are always zero.
	FeatureCount = 8
)

// QuestionnaireShape is the tensor shape produced by Answers.Features.
var QuestionnaireShape = []int64{1, FeatureCount}

// Questions in the order the classifier expects them.
var Questions = [QuestionCount]string{
	"Do you feel knee pain often?",
	"Do you experience stiffness in the knee?",
	"Do you have difficulty climbing stairs?",
	"Do you have swelling around your knee?",
	"Do you experience knee buckling?",
	"Are you above 50 years of age?",
}

// Answers holds one response per question, true meaning yes.
type Answers [QuestionCount]bool

// AnswersFromForm reads fields q1..q6. Only the exact value "yes" is a yes;
// absent or any other value is a no.
func AnswersFromForm(get func(key string) string) Answers {
	var a Answers
	for i := range a {
		a[i] = get("q"+strconv.Itoa(i+1)) == "yes"
	}
	return a
}

// Features returns the 8 element classifier input.
func (a Answers) Features() []float32 {
	out := make([]float32, FeatureCount)
	for i, yes := range a {
		if yes {
			out[i] = 1
		}
	}
	return out
}

// Tensor wraps Features with its (1, 8) shape.
func (a Answers) Tensor() *Tensor {
	return &Tensor{
		Shape: append([]int64(nil), QuestionnaireShape...),
		Data:  a.Features(),
	}
}

// Display renders each answer as "Yes" or "No".
func (a Answers) Display() []string {
	out := make([]string, len(a))
	for i, yes := range a {
		if yes {
			out[i] = "Yes"
		} else {
			out[i] = "No"
		}
	}
	return out
}
