// Package external provides the optional model-backed fallback classifier.
package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/yourdesigncoza/get-insider-db/internal/classify"
)

const (
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 256
)

const systemPrompt = `You classify reporting owners from SEC Form 3/4/5 filings.
Answer with a single JSON object and nothing else:
{"entity_type": one of "person", "fund_or_investment_vehicle", "operating_company", "trust_or_foundation", "other",
 "is_fund_like": true|false,
 "confidence": number between 0 and 1,
 "rationale": short explanation}`

// Options parameterise the Anthropic classifier.
type Options struct {
	APIKey            string
	Model             string
	BaseURL           string
	MaxTokens         int
	MaxRetries        int
	RequestsPerSecond float64
}

// Classifier asks an Anthropic model to classify a party.
type Classifier struct {
	client    anthropic.Client
	enabled   bool
	model     string
	maxTokens int
	limiter   *rate.Limiter
	logger    zerolog.Logger
}

// New constructs the classifier. Without an API key every call returns
// classify.ErrFallbackUnavailable.
func New(opts Options, logger zerolog.Logger) *Classifier {
	model := opts.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	c := &Classifier{
		enabled:   strings.TrimSpace(opts.APIKey) != "",
		model:     model,
		maxTokens: maxTokens,
		logger:    logger.With().Str("component", "external_classifier").Logger(),
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	if !c.enabled {
		return c
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(opts.MaxRetries),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	c.client = anthropic.NewClient(reqOpts...)
	return c
}

// Classify sends the party to the model and decodes its JSON answer.
func (c *Classifier) Classify(ctx context.Context, in classify.Input) (classify.Classification, error) {
	if !c.enabled {
		return classify.Classification{}, classify.ErrFallbackUnavailable
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return classify.Classification{}, fmt.Errorf("rate limiter: %w", err)
		}
	}

	prompt, err := buildPrompt(in)
	if err != nil {
		return classify.Classification{}, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
	}

	started := time.Now()
	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return classify.Classification{}, fmt.Errorf("anthropic messages: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	result, err := parseAnswer(text.String())
	if err != nil {
		return classify.Classification{}, err
	}

	c.logger.Debug().Str("party", in.PartyKey()).
		Str("entity_type", string(result.EntityType)).
		Dur("duration", time.Since(started)).
		Msg("external classification received")
	return result, nil
}

func buildPrompt(in classify.Input) (string, error) {
	payload := map[string]interface{}{
		"name":                 in.Name,
		"officer_title":        in.Title,
		"is_director":          in.Flags.IsDirector,
		"is_officer":           in.Flags.IsOfficer,
		"is_ten_percent_owner": in.Flags.IsTenPercentOwner,
		"is_other":             in.Flags.IsOther,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal classification prompt: %w", err)
	}
	return "Classify this reporting owner:\n" + string(body), nil
}

type answer struct {
	EntityType string   `json:"entity_type"`
	IsFundLike *bool    `json:"is_fund_like"`
	Confidence *float64 `json:"confidence"`
	Rationale  string   `json:"rationale"`
}

// parseAnswer extracts the first JSON object from the model output; models
// sometimes wrap it in a code fence.
func parseAnswer(text string) (classify.Classification, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return classify.Classification{}, errors.New("external classifier returned no JSON object")
	}

	var a answer
	if err := json.Unmarshal([]byte(text[start:end+1]), &a); err != nil {
		return classify.Classification{}, fmt.Errorf("decode external classification: %w", err)
	}

	entity := classify.EntityType(strings.ToLower(strings.TrimSpace(a.EntityType)))
	if !entity.Valid() {
		return classify.Classification{}, fmt.Errorf("external classifier returned unknown entity_type %q", a.EntityType)
	}

	fundLike := entity == classify.EntityFund
	if a.IsFundLike != nil {
		fundLike = *a.IsFundLike
	}
	confidence := 0.75
	if a.Confidence != nil {
		confidence = *a.Confidence
	}

	return classify.Classification{
		EntityType: entity,
		IsFundLike: fundLike,
		Source:     classify.SourceExternal,
		Confidence: confidence,
		Rationale:  a.Rationale,
	}, nil
}

var _ classify.Classifier = (*Classifier)(nil)
