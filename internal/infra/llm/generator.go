package llm

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/genai"
	"reading-quiz-service/internal/domain"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// textModel is the subset of genai.Models the generator needs.
type textModel interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator writes an age-appropriate passage and ten questions about it with Gemini.
type Generator struct {
	models textModel
	model  string
}

// NewGenerator connects to the Gemini API with the given key.
func NewGenerator(ctx context.Context, apiKey, model string) (*Generator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	log.Printf("question generator using %s", modelOrDefault(model))
	return newGenerator(client.Models, model), nil
}

func newGenerator(models textModel, model string) *Generator {
	return &Generator{models: models, model: modelOrDefault(model)}
}

func (g *Generator) Generate(ctx context.Context, age int, category domain.Category) (string, []domain.Question, error) {
	raw, err := g.complete(ctx, passagePrompt(age, category), nil)
	if err != nil {
		return "", nil, err
	}
	passage := cleanPassage(raw)
	if passage == "" {
		return "", nil, fmt.Errorf("%w: empty passage", domain.ErrGenerationFailure)
	}

	raw, err = g.complete(ctx, questionsPrompt(passage, category), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", nil, err
	}
	questions, err := parseQuestions(raw, category)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailure, err)
	}
	return passage, questions, nil
}

func (g *Generator) complete(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	result, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGenerationFailure, err)
	}
	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("%w: model returned no text", domain.ErrGenerationFailure)
	}
	return text, nil
}

func passagePrompt(age int, category domain.Category) string {
	return fmt.Sprintf(
		"사용자의 나이는 %d세입니다. 나이 수준에 맞도록 쉽게 %s에 대한 문제를 만들기 위한 한국어 지문을 100자 이내로 작성하세요. 지문만 출력하세요.",
		age, category)
}

func questionsPrompt(passage string, category domain.Category) string {
	return fmt.Sprintf(`다음 지문을 기반으로 10개의 다양한 질문을 만드세요.
- 4지선다형 %d개: type은 "multiple_choice", options는 보기 4개
- O/X 퀴즈 %d개: type은 "true_false", options는 ["O", "X"]
correctAnswer는 options 중 하나와 정확히 같아야 합니다.
문제와 선택지에는 영어를 쓰지 마세요.

다음 JSON 형식으로만 반환하세요:
{"questions":[{"id":1,"type":"multiple_choice","question":"...","options":["...","...","...","..."],"correctAnswer":"...","category":"%s"}]}

카테고리: %s
지문: %s`, multipleChoiceCount, trueFalseCount, category, category, passage)
}

func modelOrDefault(model string) string {
	if model == "" {
		return DefaultModel
	}
	return model
}
