package remote

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/time/rate"

	"midas/pkg/errors"
	"midas/pkg/logger"
)

const systemPrompt = `You are a financial sentiment classifier. ` +
	`Given a financial document, respond with a single JSON object ` +
	`{"polarity": <float in [-1,1]>, "intensity": <float in [0,1]>} ` +
	`where polarity is the overall sentiment and intensity is how far ` +
	`from neutral the document reads. Respond with JSON only.`

// maxPromptChars bounds what we send per request; documents longer than
// this are truncated, the head carries the headline sentiment anyway.
const maxPromptChars = 12000

type modelResponse struct {
	Polarity  float64 `json:"polarity"`
	Intensity float64 `json:"intensity"`
}

// OpenAIScorer scores document sentiment through the OpenAI chat API.
// Requests run at temperature zero and are rate limited client side.
type OpenAIScorer struct {
	client  openai.Client
	model   openai.ChatModel
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewOpenAIScorer creates a remote sentiment scorer.
func NewOpenAIScorer(apiKey, model string, rps float64) (*OpenAIScorer, error) {
	if apiKey == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "openai API key is required")
	}
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}
	if rps <= 0 {
		rps = 1
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &OpenAIScorer{
		client:  client,
		model:   openai.ChatModel(model),
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		log:     logger.Get().With("component", "openai_scorer", "model", model),
	}, nil
}

// Name returns the scorer identifier used in metrics and logs.
func (s *OpenAIScorer) Name() string { return "openai" }

// Score classifies the text and returns polarity and intensity. The call
// respects the caller's deadline both while waiting on the rate limiter
// and during the API request.
func (s *OpenAIScorer) Score(ctx context.Context, text string) (float64, float64, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, 0, err
	}

	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}

	response, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(text),
		},
		Model:       s.model,
		Temperature: openai.Float(0),
	})
	if err != nil {
		return 0, 0, errors.Wrap(errors.ErrScorerUnavailable, err.Error())
	}
	if len(response.Choices) == 0 {
		return 0, 0, errors.Wrapf(errors.ErrScorerUnavailable, "no choices returned")
	}

	parsed, err := parseResponse(response.Choices[0].Message.Content)
	if err != nil {
		return 0, 0, err
	}

	s.log.Debug("Scored document remotely",
		"polarity", parsed.Polarity,
		"intensity", parsed.Intensity,
		"tokens_used", response.Usage.TotalTokens)

	return clamp(parsed.Polarity, -1, 1), clamp(parsed.Intensity, 0, 1), nil
}

// parseResponse extracts the JSON object from the model reply, tolerating
// code fences some models wrap around JSON output.
func parseResponse(content string) (modelResponse, error) {
	var parsed modelResponse

	content = strings.TrimSpace(content)
	if start := strings.Index(content, "{"); start >= 0 {
		if end := strings.LastIndex(content, "}"); end > start {
			content = content[start : end+1]
		}
	}

	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return parsed, errors.Wrapf(errors.ErrScorerUnavailable, "malformed model response: %v", err)
	}
	return parsed, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
