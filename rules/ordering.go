package rules

import (
	"fmt"
	"sort"

	"github.com/formflow/formflow/model"
)

// QuestionOrder is one order assignment produced by Renumber or Reorder,
// to be applied to the store in a single transaction.
type QuestionOrder struct {
	ID    string
	Order int
}

// NextOrder returns the order value for a question appended to the template:
// one past the highest existing order, or 0 for the first question.
func NextOrder(questions []model.Question) int {
	next := 0
	for _, q := range questions {
		if q.Order >= next {
			next = q.Order + 1
		}
	}
	return next
}

// Renumber reassigns dense orders 0..n-1 to the given questions, preserving
// their relative sequence by current order. Used after a delete to close the
// gap it left.
func Renumber(questions []model.Question) []QuestionOrder {
	sorted := make([]model.Question, len(questions))
	copy(sorted, questions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})

	orders := make([]QuestionOrder, len(sorted))
	for i, q := range sorted {
		orders[i] = QuestionOrder{ID: q.ID, Order: i}
	}
	return orders
}

// Reorder assigns each question the index of its ID in orderedIds.
// orderedIds must be an exact permutation of the template's question IDs;
// anything else would corrupt the dense-order invariant and is rejected.
func Reorder(questions []model.Question, orderedIds []string) ([]QuestionOrder, error) {
	if len(orderedIds) != len(questions) {
		return nil, fmt.Errorf("expected %d question ids, got %d", len(questions), len(orderedIds))
	}

	known := make(map[string]bool, len(questions))
	for _, q := range questions {
		known[q.ID] = true
	}

	orders := make([]QuestionOrder, len(orderedIds))
	for i, id := range orderedIds {
		if !known[id] {
			return nil, fmt.Errorf("unknown or duplicate question id %q", id)
		}
		known[id] = false
		orders[i] = QuestionOrder{ID: id, Order: i}
	}
	return orders, nil
}
