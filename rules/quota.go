package rules

import "github.com/formflow/formflow/model"

// MaxQuestionsPerType caps how many visible questions of one type a
// template may hold.
const MaxQuestionsPerType = 4

// CanAddQuestion reports whether a question of the given type may be added
// to a template currently holding the given questions. Only visible
// questions count against the quota, and the check runs at creation time
// only: toggling a hidden question back to visible is not re-validated.
func CanAddQuestion(questions []model.Question, qtype model.QuestionType) bool {
	count := 0
	for _, q := range questions {
		if q.Visible && q.Type == qtype {
			count++
		}
	}
	return count < MaxQuestionsPerType
}
