package services

import (
	"log/slog"
	"testing"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/testprep-service/internal/models"
	"github.com/SAP-F-2025/testprep-service/internal/repositories"
	"github.com/SAP-F-2025/testprep-service/internal/validator"
)

func TestNewScoringService(t *testing.T) {
	type args struct {
		repo      repositories.Repository
		db        *gorm.DB
		logger    *slog.Logger
		validator *validator.Validator
	}
	tests := []struct {
		name string
		args args
		want ScoringService
	}{
		{name: "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			NewScoringService(tt.args.repo, tt.args.db, tt.args.logger, tt.args.validator, nil, nil)
		})
	}
}

func mcqQuestion(id uint, marks float64, topic string) *models.Question {
	return &models.Question{
		ID:            id,
		Type:          models.MCQ,
		Marks:         marks,
		Topic:         topic,
		CorrectAnswer: datatypes.JSON(`{"index":1}`),
	}
}

func answerSlot(questionID uint, selected string) models.AttemptAnswer {
	slot := models.AttemptAnswer{QuestionID: questionID}
	if selected != "" {
		slot.SelectedAnswer = datatypes.JSON(selected)
	}
	return slot
}

func TestGradeAttempt(t *testing.T) {
	questions := map[uint]*models.Question{
		1: mcqQuestion(1, 1, "algebra"),
		2: mcqQuestion(2, 1, "algebra"),
		3: mcqQuestion(3, 1, "geometry"),
		4: mcqQuestion(4, 1, "geometry"),
	}
	test := &models.Test{
		TotalMarks:             4,
		PassingMarks:           50,
		NegativeMarkingEnabled: true,
		NegativeMarkingPercent: 25,
	}

	t.Run("mixed outcome with negative marking", func(t *testing.T) {
		answers := []models.AttemptAnswer{
			answerSlot(1, `{"index":1}`),
			answerSlot(2, `{"index":1}`),
			answerSlot(3, `{"index":0}`),
			answerSlot(4, ""),
		}

		outcome := gradeAttempt(answers, questions, test)

		if outcome.ObtainedMarks != 1.75 {
			t.Errorf("ObtainedMarks = %v, want 1.75", outcome.ObtainedMarks)
		}
		if outcome.NegativeMarks != 0.25 {
			t.Errorf("NegativeMarks = %v, want 0.25", outcome.NegativeMarks)
		}
		if outcome.Percentage != 44 {
			t.Errorf("Percentage = %d, want 44", outcome.Percentage)
		}
		if outcome.CorrectCount != 2 || outcome.IncorrectCount != 1 || outcome.UnansweredCount != 1 {
			t.Errorf("counts = %d/%d/%d, want 2/1/1",
				outcome.CorrectCount, outcome.IncorrectCount, outcome.UnansweredCount)
		}
		if outcome.Passed {
			t.Error("Passed = true, want false at 44 against passing 50")
		}

		if answers[2].MarksObtained == nil || *answers[2].MarksObtained != -0.25 {
			t.Errorf("wrong answer MarksObtained = %v, want -0.25", answers[2].MarksObtained)
		}
		if answers[3].MarksObtained == nil || *answers[3].MarksObtained != 0 {
			t.Errorf("unanswered MarksObtained = %v, want 0", answers[3].MarksObtained)
		}
		if answers[3].IsCorrect != nil {
			t.Error("unanswered slot must not be graded correct or incorrect")
		}
	})

	t.Run("total never drops below zero", func(t *testing.T) {
		heavy := &models.Test{
			TotalMarks:             2,
			PassingMarks:           50,
			NegativeMarkingEnabled: true,
			NegativeMarkingPercent: 100,
		}
		answers := []models.AttemptAnswer{
			answerSlot(1, `{"index":0}`),
			answerSlot(2, `{"index":0}`),
		}

		outcome := gradeAttempt(answers, questions, heavy)

		if outcome.ObtainedMarks != 0 {
			t.Errorf("ObtainedMarks = %v, want 0 after clamping", outcome.ObtainedMarks)
		}
		if outcome.NegativeMarks != 2 {
			t.Errorf("NegativeMarks = %v, want 2", outcome.NegativeMarks)
		}
		if outcome.Percentage != 0 {
			t.Errorf("Percentage = %d, want 0", outcome.Percentage)
		}
	})

	t.Run("all correct passes", func(t *testing.T) {
		answers := []models.AttemptAnswer{
			answerSlot(1, `{"index":1}`),
			answerSlot(2, `{"index":1}`),
			answerSlot(3, `{"index":1}`),
			answerSlot(4, `{"index":1}`),
		}

		outcome := gradeAttempt(answers, questions, test)

		if outcome.ObtainedMarks != 4 || outcome.Percentage != 100 || !outcome.Passed {
			t.Errorf("outcome = %v/%d/passed=%v, want 4/100/true",
				outcome.ObtainedMarks, outcome.Percentage, outcome.Passed)
		}
	})

	t.Run("explicit null selection stays unanswered", func(t *testing.T) {
		answers := []models.AttemptAnswer{
			answerSlot(1, `null`),
			answerSlot(2, `{"index":1}`),
		}

		outcome := gradeAttempt(answers, questions, test)

		if outcome.UnansweredCount != 1 || outcome.IncorrectCount != 0 {
			t.Errorf("counts = %d unanswered / %d incorrect, want 1/0",
				outcome.UnansweredCount, outcome.IncorrectCount)
		}
		if answers[0].IsCorrect != nil {
			t.Error("null selection must not be graded correct or incorrect")
		}
		if answers[0].MarksObtained == nil || *answers[0].MarksObtained != 0 {
			t.Errorf("null selection MarksObtained = %v, want 0", answers[0].MarksObtained)
		}
	})

	t.Run("empty test scores zero percent", func(t *testing.T) {
		empty := &models.Test{TotalMarks: 0, PassingMarks: 0, NegativeMarkingEnabled: true}

		outcome := gradeAttempt(nil, questions, empty)

		if outcome.Percentage != 0 {
			t.Errorf("Percentage = %d, want 0 for a test without marks", outcome.Percentage)
		}
	})
}

func TestMergeSubmittedAnswers(t *testing.T) {
	s := &scoringService{}
	attempt := &models.Attempt{
		Answers: []models.AttemptAnswer{
			{QuestionID: 1},
			{QuestionID: 2},
			{QuestionID: 3},
		},
	}
	submitted := []models.SubmittedAnswer{
		{QuestionID: 1, SelectedAnswer: []byte(`{"index":0}`)},
		{QuestionID: 2, SelectedAnswer: []byte(`null`)},
		{QuestionID: 99, SelectedAnswer: []byte(`{"index":1}`)},
	}

	s.mergeSubmittedAnswers(attempt, submitted)

	if string(attempt.Answers[0].SelectedAnswer) != `{"index":0}` {
		t.Errorf("slot 1 = %s, want the submitted selection", attempt.Answers[0].SelectedAnswer)
	}
	if attempt.Answers[1].SelectedAnswer != nil {
		t.Errorf("slot 2 = %s, want null selections left unset", attempt.Answers[1].SelectedAnswer)
	}
	if attempt.Answers[2].SelectedAnswer != nil {
		t.Errorf("slot 3 = %s, want unmentioned slots left unset", attempt.Answers[2].SelectedAnswer)
	}
}

func TestIsAnswerCorrect(t *testing.T) {
	tests := []struct {
		name     string
		qType    models.QuestionType
		correct  string
		selected string
		want     bool
	}{
		{"mcq match", models.MCQ, `{"index":2}`, `{"index":2}`, true},
		{"mcq mismatch", models.MCQ, `{"index":2}`, `{"index":0}`, false},
		{"true_false match", models.TrueFalse, `{"index":0}`, `{"index":0}`, true},
		{"multiple_select same order", models.MultipleSelect, `{"indices":[0,2]}`, `{"indices":[0,2]}`, true},
		{"multiple_select different order", models.MultipleSelect, `{"indices":[0,2]}`, `{"indices":[2,0]}`, true},
		{"multiple_select duplicates collapse", models.MultipleSelect, `{"indices":[0,2]}`, `{"indices":[2,0,0]}`, true},
		{"multiple_select missing index", models.MultipleSelect, `{"indices":[0,2]}`, `{"indices":[0]}`, false},
		{"multiple_select extra index", models.MultipleSelect, `{"indices":[0,2]}`, `{"indices":[0,1,2]}`, false},
		{"fill_blank exact", models.FillBlank, `{"text":"photosynthesis"}`, `{"text":"photosynthesis"}`, true},
		{"fill_blank case and whitespace", models.FillBlank, `{"text":"Photosynthesis"}`, `{"text":"  photosynthesis "}`, true},
		{"short_answer mismatch", models.ShortAnswer, `{"text":"mitochondria"}`, `{"text":"chloroplast"}`, false},
		{"malformed selection", models.MCQ, `{"index":1}`, `{"index":`, false},
		{"unknown type", models.QuestionType("essay"), `{"text":"x"}`, `{"text":"x"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			question := &models.Question{
				Type:          tt.qType,
				CorrectAnswer: datatypes.JSON(tt.correct),
			}
			if got := isAnswerCorrect(question, datatypes.JSON(tt.selected)); got != tt.want {
				t.Errorf("isAnswerCorrect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputePercentage(t *testing.T) {
	tests := []struct {
		name     string
		obtained float64
		total    float64
		want     int
	}{
		{"rounds up", 1.75, 4, 44},
		{"rounds half up", 1, 8, 13},
		{"full marks", 10, 10, 100},
		{"zero total", 5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computePercentage(tt.obtained, tt.total); got != tt.want {
				t.Errorf("computePercentage(%v, %v) = %d, want %d", tt.obtained, tt.total, got, tt.want)
			}
		})
	}
}

func TestIsAnswered(t *testing.T) {
	tests := []struct {
		name     string
		selected string
		want     bool
	}{
		{"real selection", `{"index":1}`, true},
		{"empty", "", false},
		{"explicit null", "null", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isAnswered(datatypes.JSON(tt.selected)); got != tt.want {
				t.Errorf("isAnswered(%q) = %v, want %v", tt.selected, got, tt.want)
			}
		})
	}
}

func TestComputeTopicScores(t *testing.T) {
	yes := true
	questions := map[uint]*models.Question{
		1: {ID: 1, Topic: "algebra"},
		2: {ID: 2, Topic: "algebra"},
		3: {ID: 3, Topic: "algebra"},
		4: {ID: 4, Topic: "algebra"},
		5: {ID: 5, Topic: ""},
	}
	selected := datatypes.JSON(`{"index":1}`)
	answers := []models.AttemptAnswer{
		{QuestionID: 1, SelectedAnswer: selected, IsCorrect: &yes},
		{QuestionID: 2},
		{QuestionID: 3},
		{QuestionID: 4, SelectedAnswer: datatypes.JSON("null")},
		{QuestionID: 5, SelectedAnswer: selected, IsCorrect: &yes},
	}

	scores := computeTopicScores(answers, questions)

	// Only the answered algebra question counts; unanswered slots and the
	// topicless question carry no signal.
	if len(scores) != 1 {
		t.Fatalf("got %d topics, want 1: %+v", len(scores), scores)
	}
	got := scores[0]
	if got.Topic != "algebra" || got.Score != 100 || got.Correct != 1 || got.Total != 1 {
		t.Errorf("scores[0] = %+v, want algebra 100 with 1 of 1", got)
	}
}

func TestSplitTopicScores(t *testing.T) {
	topics := []models.TopicScore{
		{Topic: "a", Score: 100},
		{Topic: "b", Score: 90},
		{Topic: "c", Score: 85},
		{Topic: "d", Score: 80},
		{Topic: "e", Score: 75},
		{Topic: "f", Score: 70},
		{Topic: "g", Score: 60},
		{Topic: "h", Score: 50},
		{Topic: "i", Score: 49},
		{Topic: "j", Score: 10},
	}

	strengths, weaknesses := splitTopicScores(topics)

	if len(strengths) != 5 {
		t.Fatalf("got %d strengths, want 5", len(strengths))
	}
	if strengths[4].Topic != "e" {
		t.Errorf("fifth strength = %s, want e (70 qualifies but the cap cuts it)", strengths[4].Topic)
	}
	if len(weaknesses) != 2 {
		t.Fatalf("got %d weaknesses, want 2", len(weaknesses))
	}
	if weaknesses[0].Topic != "j" || weaknesses[1].Topic != "i" {
		t.Errorf("weaknesses = %v, want weakest first: j then i", weaknesses)
	}
	for _, s := range strengths {
		if s.Topic == "g" || s.Topic == "h" {
			t.Errorf("topic %s between 50 and 69 must land in neither list", s.Topic)
		}
	}
}
