package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicbot/internal/config"
)

// fakeEmbedClient embeds texts as bag-of-words vectors over a fixed
// vocabulary, so related texts really do score higher on cosine similarity.
type fakeEmbedClient struct {
	vocab []string
	err   error
}

func newFakeEmbedClient(vocab ...string) *fakeEmbedClient {
	return &fakeEmbedClient{vocab: vocab}
}

func (f *fakeEmbedClient) CreateEmbeddings(_ context.Context, request openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	if f.err != nil {
		return openai.EmbeddingResponse{}, f.err
	}
	req := request.Convert()
	inputs, ok := req.Input.([]string)
	if !ok {
		return openai.EmbeddingResponse{}, errors.New("unexpected input type")
	}

	resp := openai.EmbeddingResponse{}
	for _, text := range inputs {
		vec := make([]float32, len(f.vocab))
		lower := strings.ToLower(text)
		for i, word := range f.vocab {
			vec[i] = float32(strings.Count(lower, word))
		}
		resp.Data = append(resp.Data, openai.Embedding{Embedding: vec})
	}
	return resp, nil
}

type fakeChatClient struct {
	reply string
	err   error
	seen  []openai.ChatCompletionRequest
}

func (f *fakeChatClient) CreateChatCompletion(_ context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.seen = append(f.seen, request)
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.reply}},
		},
	}, nil
}

func testKnowledgeConfig() config.KnowledgeConfig {
	return config.KnowledgeConfig{
		EmbeddingModel: "text-embedding-3-small",
		ChatModel:      "gpt-4o-mini",
		TopK:           2,
		MinScore:       0.2,
	}
}

func loadedIndex(t *testing.T, embed *fakeEmbedClient) *Index {
	t.Helper()
	logger := zerolog.Nop()
	idx := NewIndex(embed, "text-embedding-3-small", &logger)
	require.NoError(t, idx.AddDocument(context.Background(), "hours.md",
		"Opening hours: the clinic is open Monday to Friday 9am to 6pm."))
	require.NoError(t, idx.AddDocument(context.Background(), "insurance.md",
		"Insurance: we accept all major insurance providers."))
	return idx
}

func TestAnswerer_GroundedAnswer(t *testing.T) {
	embed := newFakeEmbedClient("hours", "open", "insurance", "providers")
	chat := &fakeChatClient{reply: "We are open Monday to Friday, 9am to 6pm."}
	logger := zerolog.Nop()

	a := NewAnswerer(loadedIndex(t, embed), chat, testKnowledgeConfig(), "SmileCare", &logger)

	ans, err := a.Answer(context.Background(), "what are your opening hours?")
	require.NoError(t, err)
	assert.True(t, ans.Grounded)
	assert.Equal(t, "We are open Monday to Friday, 9am to 6pm.", ans.Text)

	require.Len(t, chat.seen, 1)
	system := chat.seen[0].Messages[0].Content
	assert.Contains(t, system, "Opening hours")
	assert.Contains(t, system, "SmileCare")
}

func TestAnswerer_BelowThresholdIsUngrounded(t *testing.T) {
	embed := newFakeEmbedClient("hours", "open", "insurance", "providers")
	chat := &fakeChatClient{reply: "should never be called"}
	logger := zerolog.Nop()

	a := NewAnswerer(loadedIndex(t, embed), chat, testKnowledgeConfig(), "SmileCare", &logger)

	ans, err := a.Answer(context.Background(), "do you sell bicycles?")
	require.NoError(t, err)
	assert.False(t, ans.Grounded)
	assert.Empty(t, chat.seen)
}

func TestAnswerer_ModelDeclinesIsUngrounded(t *testing.T) {
	embed := newFakeEmbedClient("hours", "open", "insurance", "providers")
	chat := &fakeChatClient{reply: noAnswerMarker}
	logger := zerolog.Nop()

	a := NewAnswerer(loadedIndex(t, embed), chat, testKnowledgeConfig(), "SmileCare", &logger)

	ans, err := a.Answer(context.Background(), "what are your opening hours?")
	require.NoError(t, err)
	assert.False(t, ans.Grounded)
}

func TestAnswerer_EmptyIndexIsUngrounded(t *testing.T) {
	embed := newFakeEmbedClient("hours")
	chat := &fakeChatClient{}
	logger := zerolog.Nop()
	idx := NewIndex(embed, "text-embedding-3-small", &logger)

	a := NewAnswerer(idx, chat, testKnowledgeConfig(), "SmileCare", &logger)

	ans, err := a.Answer(context.Background(), "what are your opening hours?")
	require.NoError(t, err)
	assert.False(t, ans.Grounded)
	assert.Empty(t, chat.seen)
}

func TestAnswerer_EmbeddingErrorPropagates(t *testing.T) {
	embed := newFakeEmbedClient("hours")
	logger := zerolog.Nop()
	idx := NewIndex(embed, "text-embedding-3-small", &logger)
	require.NoError(t, idx.AddDocument(context.Background(), "hours.md", "Opening hours: 9 to 6."))

	embed.err = errors.New("openai: 429")
	a := NewAnswerer(idx, &fakeChatClient{}, testKnowledgeConfig(), "SmileCare", &logger)

	_, err := a.Answer(context.Background(), "hours?")
	assert.Error(t, err)
}

func TestSplitChunks(t *testing.T) {
	doc := "First paragraph.\n\nSecond paragraph.\n\n\n\nThird."
	chunks := splitChunks(doc)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0], "First paragraph.")
	assert.Contains(t, chunks[0], "Third.")

	long := strings.Repeat("a", maxChunkChars) + "\n\n" + strings.Repeat("b", 10)
	chunks = splitChunks(long)
	assert.Len(t, chunks, 2)

	assert.Empty(t, splitChunks("   \n\n  "))
}

func TestIndex_LoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	writeFile("hours.md", "Opening hours: 9 to 6.")
	writeFile("notes.txt", "Parking is available behind the building.")
	writeFile("ignored.pdf", "binary")

	embed := newFakeEmbedClient("hours", "parking")
	logger := zerolog.Nop()
	idx := NewIndex(embed, "text-embedding-3-small", &logger)
	require.NoError(t, idx.LoadDir(context.Background(), dir))
	assert.Equal(t, 2, idx.Len())

	// Missing directory leaves the index empty without error.
	idx2 := NewIndex(embed, "text-embedding-3-small", &logger)
	require.NoError(t, idx2.LoadDir(context.Background(), filepath.Join(dir, "missing")))
	assert.Equal(t, 0, idx2.Len())
}
