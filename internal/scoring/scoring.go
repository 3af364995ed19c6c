// Package scoring grades single-select multiple choice answer vectors.
package scoring

import "github.com/stemsi/eduassess-backend/internal/model"

// Score returns the points earned by answers and the exam's total points.
//
// A question earns its points only when the matching answer slot equals its
// correct index. Slots missing from a short answers slice count as unanswered,
// and model.Unanswered never matches a valid correct index.
func Score(questions []model.Question, answers []int) (score, total int) {
	for i, q := range questions {
		total += q.Points
		if i < len(answers) && answers[i] != model.Unanswered && answers[i] == q.CorrectAnswerIndex {
			score += q.Points
		}
	}
	return score, total
}

// Percentage converts a score to a 0..100 percentage. Zero total yields 0.
func Percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(score) / float64(total) * 100
}
