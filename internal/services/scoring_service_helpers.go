package services

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/testprep-service/internal/models"
)

// scoreOutcome is the aggregate of one grading pass.
type scoreOutcome struct {
	ObtainedMarks   float64
	NegativeMarks   float64
	Percentage      int
	CorrectCount    int
	IncorrectCount  int
	UnansweredCount int
	Passed          bool
}

// isAnswered reports whether a selection carries an actual answer. An
// absent slot and an explicit JSON null both count as unanswered.
func isAnswered(selected datatypes.JSON) bool {
	return len(selected) > 0 && string(selected) != "null"
}

// mergeSubmittedAnswers copies submitted selections into the attempt's
// answer slots, matching by question id. Submissions for questions outside
// the attempt are dropped; slots the submission never mentions, or that
// carry a null selection, stay null.
func (s *scoringService) mergeSubmittedAnswers(attempt *models.Attempt, submitted []models.SubmittedAnswer) {
	byQuestion := make(map[uint]*models.SubmittedAnswer, len(submitted))
	for i := range submitted {
		byQuestion[submitted[i].QuestionID] = &submitted[i]
	}

	for i := range attempt.Answers {
		slot := &attempt.Answers[i]
		sub, ok := byQuestion[slot.QuestionID]
		if !ok || !isAnswered(datatypes.JSON(sub.SelectedAnswer)) {
			continue
		}
		slot.SelectedAnswer = datatypes.JSON(sub.SelectedAnswer)
		slot.TimeTakenSeconds = sub.TimeTakenSeconds
	}
}

// gradeAttempt grades every answer slot in place and totals the outcome.
// Unanswered slots score zero and are never penalized; wrong answers take
// the per-question negative penalty when the test enables it.
func gradeAttempt(answers []models.AttemptAnswer, questionsByID map[uint]*models.Question, test *models.Test) scoreOutcome {
	var outcome scoreOutcome
	var obtained float64

	for i := range answers {
		answer := &answers[i]
		question, ok := questionsByID[answer.QuestionID]
		if !ok {
			continue
		}

		if !isAnswered(answer.SelectedAnswer) {
			outcome.UnansweredCount++
			zero := 0.0
			answer.MarksObtained = &zero
			continue
		}

		correct := isAnswerCorrect(question, answer.SelectedAnswer)
		answer.IsCorrect = &correct

		if correct {
			outcome.CorrectCount++
			marks := question.Marks
			answer.MarksObtained = &marks
			obtained += question.Marks
		} else {
			outcome.IncorrectCount++
			penalty := 0.0
			if test.NegativeMarkingEnabled {
				penalty = question.Marks * test.NegativeMarkingPercent / 100
			}
			negative := -penalty
			answer.MarksObtained = &negative
			obtained -= penalty
			outcome.NegativeMarks = round2(outcome.NegativeMarks + penalty)
		}
	}

	if obtained < 0 {
		obtained = 0
	}
	outcome.ObtainedMarks = round2(obtained)
	outcome.Percentage = computePercentage(outcome.ObtainedMarks, test.TotalMarks)
	outcome.Passed = outcome.Percentage >= test.PassingMarks

	return outcome
}

// isAnswerCorrect matches a selection against the stored correct answer
// using the shape for the question's type. Malformed selections grade as
// incorrect rather than failing the whole submission.
func isAnswerCorrect(question *models.Question, selected datatypes.JSON) bool {
	switch question.Type {
	case models.MCQ, models.TrueFalse:
		var want, got models.SingleIndexAnswer
		if json.Unmarshal(question.CorrectAnswer, &want) != nil {
			return false
		}
		if json.Unmarshal(selected, &got) != nil {
			return false
		}
		return got.Index == want.Index

	case models.MultipleSelect:
		var want, got models.MultiIndexAnswer
		if json.Unmarshal(question.CorrectAnswer, &want) != nil {
			return false
		}
		if json.Unmarshal(selected, &got) != nil {
			return false
		}
		return indexSetsEqual(want.Indices, got.Indices)

	case models.FillBlank, models.ShortAnswer:
		var want, got models.TextAnswer
		if json.Unmarshal(question.CorrectAnswer, &want) != nil {
			return false
		}
		if json.Unmarshal(selected, &got) != nil {
			return false
		}
		return strings.EqualFold(strings.TrimSpace(got.Text), strings.TrimSpace(want.Text))
	}

	return false
}

// indexSetsEqual compares selections as sets: order and duplicates carry no
// meaning for multiple select.
func indexSetsEqual(a, b []int) bool {
	setA := make(map[int]struct{}, len(a))
	for _, v := range a {
		setA[v] = struct{}{}
	}
	setB := make(map[int]struct{}, len(b))
	for _, v := range b {
		setB[v] = struct{}{}
	}
	if len(setA) != len(setB) {
		return false
	}
	for v := range setA {
		if _, ok := setB[v]; !ok {
			return false
		}
	}
	return true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// computePercentage rounds to the nearest integer; an empty test scores 0.
func computePercentage(obtained, total float64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(obtained / total * 100))
}

// ===== TOPIC ANALYSIS =====

// computeTopicScores groups answered questions by topic and scores each as
// round(correct/total*100). Unanswered slots and questions without a topic
// carry no signal about the user and stay out of the buckets.
func computeTopicScores(answers []models.AttemptAnswer, questionsByID map[uint]*models.Question) []models.TopicScore {
	type bucket struct {
		correct int
		total   int
	}
	buckets := make(map[string]*bucket)

	for i := range answers {
		answer := &answers[i]
		question, ok := questionsByID[answer.QuestionID]
		if !ok || question.Topic == "" || !isAnswered(answer.SelectedAnswer) {
			continue
		}
		b, ok := buckets[question.Topic]
		if !ok {
			b = &bucket{}
			buckets[question.Topic] = b
		}
		b.total++
		if answer.IsCorrect != nil && *answer.IsCorrect {
			b.correct++
		}
	}

	scores := make([]models.TopicScore, 0, len(buckets))
	for topic, b := range buckets {
		scores = append(scores, models.TopicScore{
			Topic:   topic,
			Score:   int(math.Round(float64(b.correct) / float64(b.total) * 100)),
			Correct: b.correct,
			Total:   b.total,
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Topic < scores[j].Topic
	})

	return scores
}

// splitTopicScores picks at most five strengths scoring 70 or above and at
// most five weak areas scoring below 50. Topics between the thresholds land
// in neither list.
func splitTopicScores(topics []models.TopicScore) (strengths, weaknesses []models.TopicScore) {
	for _, t := range topics {
		if t.Score >= 70 && len(strengths) < 5 {
			strengths = append(strengths, t)
		}
	}
	// Weakest first
	for i := len(topics) - 1; i >= 0; i-- {
		if topics[i].Score < 50 && len(weaknesses) < 5 {
			weaknesses = append(weaknesses, topics[i])
		}
	}
	return strengths, weaknesses
}

func marshalTopicAreas(attempt *models.Attempt, strengths, weaknesses []models.TopicScore) error {
	strengthJSON, err := json.Marshal(strengths)
	if err != nil {
		return fmt.Errorf("failed to encode strengths: %w", err)
	}
	weakJSON, err := json.Marshal(weaknesses)
	if err != nil {
		return fmt.Errorf("failed to encode weak areas: %w", err)
	}
	attempt.StrengthAreas = datatypes.JSON(strengthJSON)
	attempt.WeakAreas = datatypes.JSON(weakJSON)
	return nil
}
