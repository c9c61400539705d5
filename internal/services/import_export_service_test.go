package services

import (
	"testing"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/testprep-service/internal/models"
)

func TestParseQuestionRow(t *testing.T) {
	t.Run("mcq row", func(t *testing.T) {
		row := []string{"mcq", "What is 2+2?", "3|4|5", "2", "2", "easy", "arithmetic"}

		req, errs := parseQuestionRow(row, "course-1")
		if len(errs) > 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
		if req.Type != models.MCQ || req.Prompt != "What is 2+2?" {
			t.Errorf("unexpected request: %+v", req)
		}
		if len(req.Options) != 3 || req.Options[1].Text != "4" {
			t.Errorf("options = %v, want 3 entries with 4 second", req.Options)
		}
		if string(req.CorrectAnswer) != `{"index":1}` {
			t.Errorf("correct answer = %s, want position 2 as index 1", req.CorrectAnswer)
		}
		if req.Marks != 2 || req.Difficulty != models.DifficultyEasy || req.Topic != "arithmetic" {
			t.Errorf("unexpected request: %+v", req)
		}
	})

	t.Run("multiple select row", func(t *testing.T) {
		row := []string{"multiple_select", "Pick the primes", "2|3|4|5", "1|2|4", "", "", ""}

		req, errs := parseQuestionRow(row, "course-1")
		if len(errs) > 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
		if string(req.CorrectAnswer) != `{"indices":[0,1,3]}` {
			t.Errorf("correct answer = %s, want indices 0,1,3", req.CorrectAnswer)
		}
		if req.Marks != 1 {
			t.Errorf("marks = %v, want default 1", req.Marks)
		}
	})

	t.Run("short answer row", func(t *testing.T) {
		row := []string{"short_answer", "Capital of France?", "", "Paris"}

		req, errs := parseQuestionRow(row, "course-1")
		if len(errs) > 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
		if string(req.CorrectAnswer) != `{"text":"Paris"}` {
			t.Errorf("correct answer = %s, want text Paris", req.CorrectAnswer)
		}
	})

	t.Run("invalid rows collect field errors", func(t *testing.T) {
		tests := []struct {
			name      string
			row       []string
			wantField string
		}{
			{"unknown type", []string{"essay", "prompt", "", "x"}, "type"},
			{"missing prompt", []string{"mcq", "", "a|b", "1"}, "prompt"},
			{"position out of range", []string{"mcq", "prompt", "a|b", "3"}, "correct_answer"},
			{"missing answer", []string{"mcq", "prompt", "a|b", ""}, "correct_answer"},
			{"bad marks", []string{"mcq", "prompt", "a|b", "1", "-2"}, "marks"},
			{"bad difficulty", []string{"mcq", "prompt", "a|b", "1", "1", "extreme"}, "difficulty"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, errs := parseQuestionRow(tt.row, "course-1")
				if req != nil {
					t.Fatal("invalid row must not produce a request")
				}
				found := false
				for _, e := range errs {
					if e.Field == tt.wantField {
						found = true
					}
				}
				if !found {
					t.Errorf("errors %v carry no %s entry", errs, tt.wantField)
				}
			})
		}
	})
}

func TestFormatQuestionRowRoundTrip(t *testing.T) {
	question := &models.Question{
		Type:          models.MultipleSelect,
		Prompt:        "Pick the primes",
		Options:       datatypes.JSON(`[{"text":"2"},{"text":"3"},{"text":"4"},{"text":"5"}]`),
		CorrectAnswer: datatypes.JSON(`{"indices":[0,1,3]}`),
		Marks:         2,
		Difficulty:    models.DifficultyMedium,
		Topic:         "numbers",
	}

	row, err := formatQuestionRow(question)
	if err != nil {
		t.Fatalf("formatQuestionRow() error = %v", err)
	}

	cells := make([]string, len(row))
	for i, v := range row {
		switch c := v.(type) {
		case string:
			cells[i] = c
		case float64:
			cells[i] = "2"
		}
	}

	req, errs := parseQuestionRow(cells, "course-1")
	if len(errs) > 0 {
		t.Fatalf("round trip produced errors: %v", errs)
	}
	if req.Prompt != question.Prompt || req.Topic != question.Topic {
		t.Errorf("round trip changed the row: %+v", req)
	}
	if string(req.CorrectAnswer) != string(question.CorrectAnswer) {
		t.Errorf("correct answer = %s, want %s", req.CorrectAnswer, question.CorrectAnswer)
	}
	if len(req.Options) != 4 {
		t.Errorf("got %d options, want 4", len(req.Options))
	}
}
