package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"reading-quiz-service/internal/domain"
)

const (
	multipleChoiceCount = 5
	trueFalseCount      = 5
	choiceOptions       = 4
)

// boilerplate matches a leading "…입니다." sentence models like to open with.
var boilerplate = regexp.MustCompile(`^.*?입니다\.\s*`)

func cleanPassage(raw string) string {
	return strings.TrimSpace(boilerplate.ReplaceAllString(strings.TrimSpace(raw), ""))
}

// flexID accepts ids encoded as numbers or numeric strings.
type flexID int

func (f *flexID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("question id %s: %w", data, err)
	}
	*f = flexID(n)
	return nil
}

type rawQuestion struct {
	ID            flexID   `json:"id"`
	Type          string   `json:"type"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

// parseQuestions decodes a model response into exactly ten validated questions
// tagged with the requested category.
func parseQuestions(raw string, category domain.Category) ([]domain.Question, error) {
	body, err := outermostObject(raw)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Questions []rawQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}

	out := make([]domain.Question, 0, len(envelope.Questions))
	for _, rq := range envelope.Questions {
		q, err := normalize(rq, category)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if err := validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

// outermostObject strips prose or code fences around the JSON object.
func outermostObject(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", errors.New("no JSON object in response")
	}
	return raw[start : end+1], nil
}

func normalize(rq rawQuestion, category domain.Category) (domain.Question, error) {
	q := domain.Question{
		ID:            int(rq.ID),
		Prompt:        strings.TrimSpace(rq.Question),
		CorrectAnswer: strings.TrimSpace(rq.CorrectAnswer),
		Category:      category,
	}
	for _, opt := range rq.Options {
		q.Options = append(q.Options, strings.TrimSpace(opt))
	}

	switch t := strings.ToLower(strings.TrimSpace(rq.Type)); {
	case strings.Contains(t, "multiple"), strings.Contains(t, "지선다"), strings.Contains(t, "객관식"):
		q.Type = domain.QuestionMultipleChoice
	case strings.Contains(t, "true"), strings.Contains(t, "o/x"), t == "ox":
		q.Type = domain.QuestionTrueFalse
		if len(q.Options) == 0 {
			q.Options = []string{"O", "X"}
		}
		for i := range q.Options {
			q.Options[i] = strings.ToUpper(q.Options[i])
		}
		q.CorrectAnswer = strings.ToUpper(q.CorrectAnswer)
	default:
		return domain.Question{}, fmt.Errorf("question %d: unknown type %q", q.ID, rq.Type)
	}
	return q, nil
}

func validate(questions []domain.Question) error {
	if len(questions) != domain.TotalQuestions {
		return fmt.Errorf("expected %d questions, got %d", domain.TotalQuestions, len(questions))
	}
	seen := make(map[int]bool, len(questions))
	var mc, tf int
	for _, q := range questions {
		if seen[q.ID] {
			return fmt.Errorf("duplicate question id %d", q.ID)
		}
		seen[q.ID] = true
		if q.Prompt == "" {
			return fmt.Errorf("question %d has no prompt", q.ID)
		}
		switch q.Type {
		case domain.QuestionMultipleChoice:
			mc++
			if len(q.Options) != choiceOptions {
				return fmt.Errorf("question %d: expected %d options, got %d", q.ID, choiceOptions, len(q.Options))
			}
		case domain.QuestionTrueFalse:
			tf++
		}
		if !contains(q.Options, q.CorrectAnswer) {
			return fmt.Errorf("question %d: answer %q is not an option", q.ID, q.CorrectAnswer)
		}
	}
	if mc != multipleChoiceCount || tf != trueFalseCount {
		return fmt.Errorf("expected %d multiple choice and %d O/X questions, got %d and %d", multipleChoiceCount, trueFalseCount, mc, tf)
	}
	return nil
}

func contains(options []string, answer string) bool {
	if answer == "" {
		return false
	}
	for _, o := range options {
		if o == answer {
			return true
		}
	}
	return false
}
