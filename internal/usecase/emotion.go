package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"assistant-chat/internal/domain"
)

type Emotion string

const (
	EmotionHappy   Emotion = "happy"
	EmotionAngry   Emotion = "angry"
	EmotionNormal  Emotion = "normal"
	EmotionSad     Emotion = "sad"
	EmotionCurious Emotion = "curious"
)

const DefaultEmotionModel = "gpt-4o-mini"

var allowedEmotions = map[Emotion]struct{}{
	EmotionHappy:   {},
	EmotionAngry:   {},
	EmotionNormal:  {},
	EmotionSad:     {},
	EmotionCurious: {},
}

type ChatCompleter interface {
	Chat(ctx context.Context, req domain.ChatRequest) (string, error)
}

// EmotionClassifier labels text with one of a fixed set of emotions using a
// chat model. It is independent of the conversation flow.
type EmotionClassifier struct {
	llm   ChatCompleter
	model string
}

func NewEmotionClassifier(llm ChatCompleter, model string) (*EmotionClassifier, error) {
	if llm == nil {
		return nil, errors.New("usecase: chat completer must not be nil")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultEmotionModel
	}
	return &EmotionClassifier{llm: llm, model: model}, nil
}

func (c *EmotionClassifier) Classify(ctx context.Context, text string) (Emotion, error) {
	if strings.TrimSpace(text) == "" {
		return "", newError(ErrorInvalidInput, "empty_text", nil)
	}
	raw, err := c.llm.Chat(ctx, buildEmotionRequest(c.model, text))
	if err != nil {
		return "", upstreamError("emotion", err)
	}
	return NormalizeEmotion(raw), nil
}

func buildEmotionRequest(model, text string) domain.ChatRequest {
	return domain.ChatRequest{
		Model: model,
		Messages: []domain.ChatMessage{
			{
				Role: "system",
				Content: "You are an emotion detection AI. Your task is to determine the emotion conveyed in the given text. " +
					"Only provide the emotion in lowercase without any punctuation.",
			},
			{
				Role:    "user",
				Content: fmt.Sprintf("Emotion of this text: %q? Respond with one of the following: happy, angry, normal, sad, curious", text),
			},
		},
		Temperature: 0.5,
		MaxTokens:   10,
	}
}

// NormalizeEmotion lowercases raw model output, drops punctuation and maps
// anything outside the vocabulary to happy.
func NormalizeEmotion(raw string) Emotion {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, strings.ToLower(strings.TrimSpace(raw)))

	e := Emotion(strings.TrimSpace(cleaned))
	if _, ok := allowedEmotions[e]; !ok {
		return EmotionHappy
	}
	return e
}
