package rag

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog"

	"clinicbot/internal/config"
	"clinicbot/internal/domain"
)

// noAnswerMarker is what the model replies when the context cannot answer
// the question. Checked verbatim, so keep it a single unlikely token.
const noAnswerMarker = "NO_ANSWER"

const systemPromptFmt = "You are a helpful assistant for %s. " +
	"Answer the patient's question using ONLY the clinic documents below. " +
	"If the documents do not contain the answer, reply with exactly %s and nothing else.\n\n" +
	"Clinic documents:\n%s"

type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Answerer answers patient questions from the embedded knowledge corpus.
// Questions whose best retrieval score falls below MinScore, and completions
// the model marks as unanswerable, come back with Grounded=false.
type Answerer struct {
	index      *Index
	chat       chatClient
	chatModel  string
	clinicName string
	topK       int
	minScore   float64
	logger     *zerolog.Logger
}

// New builds the full OpenAI-backed answerer and loads the corpus from
// cfg.Dir. The same API client serves embeddings and completions.
func New(ctx context.Context, cfg config.KnowledgeConfig, clinicName string, logger *zerolog.Logger) (*Answerer, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("openai api key is not configured")
	}
	client := openai.NewClient(cfg.OpenAIKey)

	idx := NewIndex(client, cfg.EmbeddingModel, logger)
	if err := idx.LoadDir(ctx, cfg.Dir); err != nil {
		return nil, err
	}

	return NewAnswerer(idx, client, cfg, clinicName, logger), nil
}

// NewAnswerer wires an answerer from parts. Tests use it with fakes.
func NewAnswerer(idx *Index, chat chatClient, cfg config.KnowledgeConfig, clinicName string, logger *zerolog.Logger) *Answerer {
	return &Answerer{
		index:      idx,
		chat:       chat,
		chatModel:  cfg.ChatModel,
		clinicName: clinicName,
		topK:       cfg.TopK,
		minScore:   cfg.MinScore,
		logger:     logger,
	}
}

func (a *Answerer) Answer(ctx context.Context, question string) (domain.Answer, error) {
	results, err := a.index.Query(ctx, question, a.topK)
	if err != nil {
		return domain.Answer{}, err
	}
	if len(results) == 0 || results[0].score < a.minScore {
		a.logger.Debug().Str("question", question).Msg("No relevant chunks above threshold")
		return domain.Answer{Grounded: false}, nil
	}

	var contextText strings.Builder
	for i, r := range results {
		if r.score < a.minScore {
			break
		}
		if i > 0 {
			contextText.WriteString("\n---\n")
		}
		contextText.WriteString(r.content)
	}

	resp, err := a.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(systemPromptFmt, a.clinicName, noAnswerMarker, contextText.String()),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: question,
			},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return domain.Answer{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Answer{}, fmt.Errorf("chat completion returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" || strings.Contains(text, noAnswerMarker) {
		return domain.Answer{Grounded: false}, nil
	}
	return domain.Answer{Text: text, Grounded: true}, nil
}
