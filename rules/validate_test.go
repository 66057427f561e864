package rules

import (
	"testing"

	"github.com/formflow/formflow/model"
	"github.com/stretchr/testify/assert"
)

func TestMissingRequired(t *testing.T) {
	questions := []model.Question{
		{ID: "q1", Title: "Name", Required: true, Visible: true},
		{ID: "q2", Title: "Age", Required: false, Visible: true},
		{ID: "q3", Title: "Email", Required: true, Visible: true},
	}

	tests := []struct {
		name    string
		answers []model.Answer
		missing []string
	}{
		{
			"all required answered",
			[]model.Answer{{QuestionID: "q1", Value: "Jo"}, {QuestionID: "q3", Value: "jo@x.dev"}},
			nil,
		},
		{
			"empty value counts as missing",
			[]model.Answer{{QuestionID: "q1", Value: ""}, {QuestionID: "q3", Value: "jo@x.dev"}},
			[]string{"Name"},
		},
		{
			"absent answer counts as missing",
			[]model.Answer{{QuestionID: "q3", Value: "jo@x.dev"}},
			[]string{"Name"},
		},
		{
			"nothing answered lists all required titles",
			nil,
			[]string{"Name", "Email"},
		},
		{
			"optional questions never missing",
			[]model.Answer{{QuestionID: "q1", Value: "Jo"}, {QuestionID: "q3", Value: "x"}},
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.missing, MissingRequired(questions, tt.answers))
		})
	}
}

func TestMissingRequired_HiddenStillRequired(t *testing.T) {
	questions := []model.Question{
		{ID: "q1", Title: "Secret", Required: true, Visible: false},
	}
	assert.Equal(t, []string{"Secret"}, MissingRequired(questions, nil))
}

func TestMissingRequired_AnswerToUnknownQuestionIgnored(t *testing.T) {
	questions := []model.Question{
		{ID: "q1", Title: "Name", Required: true, Visible: true},
	}
	answers := []model.Answer{{QuestionID: "zzz", Value: "stray"}}
	assert.Equal(t, []string{"Name"}, MissingRequired(questions, answers))
}
