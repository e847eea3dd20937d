// Package assistant backs the holographic guide with an OpenAI chat
// model, moderation gating and interaction logging.
package assistant

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/arteregistrazioni/arte-server/internal/catalog"
)

const (
	maxHistoryMessages = 12
	temperature        = 0.7
	maxTokens          = 400
	ctaLookback        = 2
)

// Message is one turn of the client-held conversation.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Reply is the assistant's answer. Fallback marks answers produced
// without the model (unconfigured or upstream failure).
type Reply struct {
	Answer   string `json:"answer"`
	Fallback bool   `json:"fallback"`
}

// Store is the slice of the repository the assistant needs.
type Store interface {
	CreateInteraction(ctx context.Context, interaction *catalog.Interaction) error
	ListRecentInteractions(ctx context.Context, limit int) ([]*catalog.Interaction, error)
}

type Service struct {
	client *openai.Client
	model  string
	repo   Store
	logger *slog.Logger
	now    func() time.Time
}

// New builds the assistant. A nil client leaves the service in
// fallback mode; every chat gets the not-configured answer.
func New(client *openai.Client, model string, repo Store, logger *slog.Logger) *Service {
	return &Service{
		client: client,
		model:  model,
		repo:   repo,
		logger: logger.With(slog.String("component", "assistant")),
		now:    time.Now,
	}
}

// NewClient wires a plain API-key client. Returns nil for an empty key.
func NewClient(apiKey string) *openai.Client {
	if apiKey == "" {
		return nil
	}
	return openai.NewClient(apiKey)
}

// Chat answers the conversation's last user message. Upstream failures
// degrade to a fallback reply instead of an error so the page keeps a
// working guide.
func (s *Service) Chat(ctx context.Context, page string, messages []Message) (*Reply, error) {
	if s.client == nil {
		return &Reply{Answer: answerNotConfigured, Fallback: true}, nil
	}

	question := lastUserText(messages)
	if blocked, err := s.moderate(ctx, question); err == nil && blocked {
		return &Reply{Answer: answerModerated}, nil
	}

	resp, err := s.client.CreateChatCompletion(ctx, s.completionRequest(page, messages))
	if err != nil {
		s.logger.Warn("chat completion failed", slog.String("error", err.Error()))
		return &Reply{Answer: answerUnavailable, Fallback: true}, nil
	}

	answer := answerEmpty
	if len(resp.Choices) > 0 {
		if text := strings.TrimSpace(resp.Choices[0].Message.Content); text != "" {
			answer = text
		}
	}

	answer = s.withCTA(ctx, answer)
	s.logInteraction(ctx, page, question, answer)
	return &Reply{Answer: answer}, nil
}

// ChatStream streams the answer chunk by chunk through emit and returns
// the full text. The call-to-action, when due, is emitted as a final
// chunk so the streamed text matches the logged one.
func (s *Service) ChatStream(ctx context.Context, page string, messages []Message, emit func(chunk string) error) (string, error) {
	if s.client == nil {
		if err := emit(answerNotConfigured); err != nil {
			return "", err
		}
		return answerNotConfigured, nil
	}

	question := lastUserText(messages)
	if blocked, err := s.moderate(ctx, question); err == nil && blocked {
		if err := emit(answerModerated); err != nil {
			return "", err
		}
		return answerModerated, nil
	}

	stream, err := s.client.CreateChatCompletionStream(ctx, s.completionRequest(page, messages))
	if err != nil {
		s.logger.Warn("chat stream failed", slog.String("error", err.Error()))
		if err := emit(answerUnavailable); err != nil {
			return "", err
		}
		return answerUnavailable, nil
	}
	defer stream.Close()

	var full strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if err := emit(delta); err != nil {
			return "", err
		}
	}

	answer := strings.TrimSpace(full.String())
	if answer == "" {
		answer = answerEmpty
		if err := emit(answer); err != nil {
			return "", err
		}
	}
	if appended := s.withCTA(ctx, answer); appended != answer {
		cta := appended[len(answer):]
		if err := emit(cta); err != nil {
			return "", err
		}
		answer = appended
	}

	s.logInteraction(ctx, page, question, answer)
	return answer, nil
}

func (s *Service) completionRequest(page string, messages []Message) openai.ChatCompletionRequest {
	history := messages
	if len(history) > maxHistoryMessages {
		history = history[len(history)-maxHistoryMessages:]
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt(page),
	})
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Text})
	}

	return openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    msgs,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
}

// moderate returns true when the text is flagged. Moderation outages
// never block the chat; they are logged and treated as clean.
func (s *Service) moderate(ctx context.Context, text string) (bool, error) {
	if strings.TrimSpace(text) == "" {
		return false, nil
	}
	res, err := s.client.Moderations(ctx, openai.ModerationRequest{
		Model: openai.ModerationOmniLatest,
		Input: text,
	})
	if err != nil {
		s.logger.Warn("moderation failed", slog.String("error", err.Error()))
		return false, err
	}
	for _, r := range res.Results {
		if r.Flagged {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) withCTA(ctx context.Context, answer string) string {
	recent, err := s.repo.ListRecentInteractions(ctx, ctaLookback)
	if err != nil {
		s.logger.Warn("listing recent interactions failed", slog.String("error", err.Error()))
		return answer
	}
	answers := make([]string, 0, len(recent))
	for _, it := range recent {
		answers = append(answers, it.Answer)
	}
	if !shouldAppendCTA(answer, answers) {
		return answer
	}
	return answer + "\n\n" + ctaText
}

func (s *Service) logInteraction(ctx context.Context, page, question, answer string) {
	it := &catalog.Interaction{
		ID:        catalog.NewID(),
		Page:      page,
		Question:  question,
		Answer:    answer,
		Category:  Classify(answer),
		Model:     s.model,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateInteraction(ctx, it); err != nil {
		s.logger.Warn("saving interaction failed", slog.String("error", err.Error()))
	}
}

func lastUserText(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Text
		}
	}
	return ""
}
