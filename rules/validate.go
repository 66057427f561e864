package rules

import "github.com/formflow/formflow/model"

// MissingRequired returns the titles of the template's required questions
// that have no non-empty answer in the submission, in question order.
// Hidden questions are not excluded: a required question stays required
// even when visible is off.
func MissingRequired(questions []model.Question, answers []model.Answer) []string {
	answered := make(map[string]bool, len(answers))
	for _, a := range answers {
		if a.Value != "" {
			answered[a.QuestionID] = true
		}
	}

	var missing []string
	for _, q := range questions {
		if q.Required && !answered[q.ID] {
			missing = append(missing, q.Title)
		}
	}
	return missing
}
