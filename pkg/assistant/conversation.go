package assistant

import "context"

// Turn is one question and its answer.
type Turn struct {
	Question string
	Answer   string
}

// DemoQuestions are the questions asked by the conversation demo.
var DemoQuestions = []string{
	"How many customers do we have?",
	"What's the average order value?",
	"Show me the sales trend over time",
	"Who are the top customers by revenue?",
}

// QuestionError reports the question whose answer failed.
type QuestionError struct {
	Question string
	Err      error
}

func (e *QuestionError) Error() string {
	return e.Err.Error()
}

func (e *QuestionError) Unwrap() error {
	return e.Err
}

// Converse asks each question in order. It stops at the first error and
// returns the turns answered so far along with a *QuestionError.
func (a *Assistant) Converse(ctx context.Context, questions []string) ([]Turn, error) {
	turns := make([]Turn, 0, len(questions))
	for _, q := range questions {
		answer, err := a.Ask(ctx, q)
		if err != nil {
			return turns, &QuestionError{Question: q, Err: err}
		}
		turns = append(turns, Turn{Question: q, Answer: answer})
	}
	return turns, nil
}
