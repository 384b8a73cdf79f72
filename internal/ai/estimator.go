// Package ai estimates calories from free text and photos through the OpenAI
// chat API. The service is treated as unreliable by contract: any transport
// failure or unparseable reply degrades to a documented fallback payload
// instead of failing the request.
package ai

import (
	"context"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"
)

// Item is a single recognized dish with its portion estimate.
type Item struct {
	Name  string `json:"name"`
	Grams int    `json:"grams"`
	Kcal  int    `json:"kcal"`
}

// Estimate is the structured result of free-text estimation.
type Estimate struct {
	Items     []Item `json:"items"`
	TotalKcal int    `json:"total_kcal"`
}

// VisionResult is the structured result of photo analysis. Date and Time are
// only populated for receipt photos that carried a printed timestamp.
type VisionResult struct {
	Date  string `json:"date,omitempty"`
	Time  string `json:"time,omitempty"`
	Items []Item `json:"items"`
}

// PhotoKind selects the vision prompt.
type PhotoKind string

// Photo kinds accepted by ParsePhoto.
const (
	// PhotoMeal is a photo of a dish.
	PhotoMeal PhotoKind = "meal"
	// PhotoReceipt is a photo of a purchase receipt.
	PhotoReceipt PhotoKind = "receipt"
)

// Estimator produces calorie estimates. Implementations never return errors;
// degraded upstreams yield fallback payloads.
type Estimator interface {
	EstimateText(ctx context.Context, text string) Estimate
	ParsePhoto(ctx context.Context, imageB64 string, kind PhotoKind) VisionResult
}

const (
	estimateSystemPrompt = "You are a nutritionist. Break free text into dishes with portions and calories. " +
		`Return JSON:{"items":[{"name":"str","grams":int,"kcal":int}],"total_kcal":int}.`
	visionSystemPrompt = "Always return only valid JSON."
	mealPrompt         = "This is a photo of a dish. Identify 1-3 dishes or components and estimate grams and calories. " +
		`Return JSON:{"items":[{"name":"str","grams":int,"kcal":int}]}`
	receiptPrompt = "This is a photo of a purchase receipt. Extract the date, time and line items. " +
		`Return JSON:{"date":"YYYY-MM-DD","time":"HH:mm","items":[{"name":"str","grams":int?,"kcal":int?}]}`

	// fallbackItemName labels the degenerate item when a photo cannot be
	// analyzed.
	fallbackItemName = "Dish"

	defaultRequestTimeout = 60 * time.Second
)

// OpenAIEstimator calls the OpenAI chat API.
type OpenAIEstimator struct {
	client        *openai.Client
	estimateModel string
	visionModel   string
	timeout       time.Duration
}

// NewOpenAIEstimator constructs an estimator. An empty API key yields a
// client-less estimator that always answers with fallbacks, which keeps local
// development working without credentials.
func NewOpenAIEstimator(apiKey, estimateModel, visionModel string) *OpenAIEstimator {
	est := &OpenAIEstimator{
		estimateModel: estimateModel,
		visionModel:   visionModel,
		timeout:       defaultRequestTimeout,
	}
	if strings.TrimSpace(apiKey) != "" {
		est.client = openai.NewClient(apiKey)
	}
	return est
}

// EstimateText breaks free text into dishes with calorie estimates.
func (e *OpenAIEstimator) EstimateText(ctx context.Context, text string) Estimate {
	if e == nil || e.client == nil {
		return fallbackEstimate(text)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, errCall := e.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: e.estimateModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: estimateSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0.1,
	})
	if errCall != nil {
		log.WithError(errCall).Warn("ai: text estimation call failed")
		return fallbackEstimate(text)
	}
	if len(resp.Choices) == 0 {
		log.Warn("ai: text estimation returned no choices")
		return fallbackEstimate(text)
	}

	estimate, ok := decodeEstimate(resp.Choices[0].Message.Content)
	if !ok {
		log.Warn("ai: text estimation returned unparseable content")
		return fallbackEstimate(text)
	}
	return estimate
}

// ParsePhoto analyzes a base64-encoded JPEG of a meal or receipt.
func (e *OpenAIEstimator) ParsePhoto(ctx context.Context, imageB64 string, kind PhotoKind) VisionResult {
	if e == nil || e.client == nil {
		return fallbackVision()
	}

	prompt := mealPrompt
	if kind == PhotoReceipt {
		prompt = receiptPrompt
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, errCall := e.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: e.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: visionSystemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: "data:image/jpeg;base64," + imageB64,
						},
					},
				},
			},
		},
		Temperature: 0.1,
	})
	if errCall != nil {
		log.WithError(errCall).Warn("ai: vision call failed")
		return fallbackVision()
	}
	if len(resp.Choices) == 0 {
		log.Warn("ai: vision returned no choices")
		return fallbackVision()
	}

	result, ok := decodeVision(resp.Choices[0].Message.Content)
	if !ok {
		log.Warn("ai: vision returned unparseable content")
		return fallbackVision()
	}
	return result
}

// fallbackEstimate is the degenerate single-item answer for free text.
func fallbackEstimate(text string) Estimate {
	return Estimate{Items: []Item{{Name: TruncateName(text)}}}
}

// fallbackVision is the degenerate single-item answer for photos.
func fallbackVision() VisionResult {
	return VisionResult{Items: []Item{{Name: fallbackItemName}}}
}
