package memory

import (
	"context"
	"fmt"

	"reading-quiz-service/internal/domain"
)

// SampleGenerator builds a fixed quiz without calling a language model. It is
// used for local runs without an API key and in tests.
type SampleGenerator struct{}

func NewSampleGenerator() *SampleGenerator {
	return &SampleGenerator{}
}

var samplePassages = map[domain.Category]string{
	domain.CategoryFourCharIdiom:  "일석이조는 돌 하나로 새 두 마리를 잡는다는 뜻으로, 한 가지 일로 두 가지 이득을 얻는 것을 말해요.",
	domain.CategoryClassicalIdiom: "새옹지마는 변방 노인의 말 이야기에서 나온 말로, 좋은 일과 나쁜 일은 늘 바뀔 수 있다는 뜻이에요.",
	domain.CategoryGrammar:        "문장의 주어는 '누가'에 해당하고, 서술어는 '어찌하다'나 '어떠하다'에 해당하는 말이에요.",
	domain.CategoryReading:        "민수는 아침마다 강아지와 공원을 산책해요. 오늘은 비가 와서 우산을 쓰고 나갔어요.",
	domain.CategoryVocabulary:     "'가늠하다'는 목표나 기준에 맞는지 헤아려 본다는 뜻이고, '어림하다'는 대강 짐작한다는 뜻이에요.",
}

// Generate returns five four-option questions followed by five O/X questions.
// The correct answer of multiple-choice question i is option (i-1)%4; O/X
// questions alternate O and X starting with O.
func (g *SampleGenerator) Generate(_ context.Context, _ int, category domain.Category) (string, []domain.Question, error) {
	if !category.Valid() {
		return "", nil, domain.ErrInvalidCategory
	}
	questions := make([]domain.Question, 0, domain.TotalQuestions)
	for i := 1; i <= 5; i++ {
		options := []string{
			fmt.Sprintf("%d번 보기 가", i),
			fmt.Sprintf("%d번 보기 나", i),
			fmt.Sprintf("%d번 보기 다", i),
			fmt.Sprintf("%d번 보기 라", i),
		}
		questions = append(questions, domain.Question{
			ID:            i,
			Type:          domain.QuestionMultipleChoice,
			Prompt:        fmt.Sprintf("지문을 읽고 알맞은 것을 고르세요. (%d)", i),
			Options:       options,
			CorrectAnswer: options[(i-1)%4],
			Category:      category,
		})
	}
	for i := 6; i <= domain.TotalQuestions; i++ {
		answer := "O"
		if i%2 == 1 {
			answer = "X"
		}
		questions = append(questions, domain.Question{
			ID:            i,
			Type:          domain.QuestionTrueFalse,
			Prompt:        fmt.Sprintf("지문의 내용과 일치하면 O, 아니면 X를 고르세요. (%d)", i),
			Options:       []string{"O", "X"},
			CorrectAnswer: answer,
			Category:      category,
		})
	}
	return samplePassages[category], questions, nil
}
