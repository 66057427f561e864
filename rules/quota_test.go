package rules

import (
	"testing"

	"github.com/formflow/formflow/model"
	"github.com/stretchr/testify/assert"
)

func visibleOfType(n int, qtype model.QuestionType) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{Type: qtype, Visible: true}
	}
	return qs
}

func TestCanAddQuestion(t *testing.T) {
	assert.True(t, CanAddQuestion(nil, model.SingleLine))
	assert.True(t, CanAddQuestion(visibleOfType(3, model.SingleLine), model.SingleLine))
	assert.False(t, CanAddQuestion(visibleOfType(4, model.SingleLine), model.SingleLine))
	assert.False(t, CanAddQuestion(visibleOfType(5, model.SingleLine), model.SingleLine))
}

func TestCanAddQuestion_PerType(t *testing.T) {
	// quota is tracked per type, a full SINGLE_LINE budget leaves others open
	qs := visibleOfType(4, model.SingleLine)
	assert.True(t, CanAddQuestion(qs, model.MultiLine))
	assert.True(t, CanAddQuestion(qs, model.Integer))
	assert.True(t, CanAddQuestion(qs, model.Checkbox))
}

func TestCanAddQuestion_HiddenQuestionsDontCount(t *testing.T) {
	qs := visibleOfType(4, model.Checkbox)
	qs[0].Visible = false
	assert.True(t, CanAddQuestion(qs, model.Checkbox))
}
