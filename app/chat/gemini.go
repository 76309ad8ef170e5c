/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package chat

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

var (
	// ErrNoAPIKey is returned before any request when no key is configured
	ErrNoAPIKey = errors.New("gemini api key not set")
	// ErrNoContent is returned when the response carries no candidate text
	ErrNoContent = errors.New("no content generated")
	// ErrTimeout replaces client and context deadline errors
	ErrTimeout = errors.New("gemini request timed out")
)

var harmCategories = []genai.HarmCategory{
	genai.HarmCategoryHarassment,
	genai.HarmCategoryHateSpeech,
	genai.HarmCategorySexuallyExplicit,
	genai.HarmCategoryDangerousContent,
}

// GeminiOptions configures the model call
type GeminiOptions struct {
	APIKey string
	// BaseURL overrides the Gemini API endpoint, empty uses the SDK default
	BaseURL         string
	Model           string
	Temperature     float64
	MaxOutputTokens int
	Timeout         time.Duration
}

// Gemini generates chat replies with a Gemini model
type Gemini struct {
	client  *genai.Client
	options GeminiOptions

	mRequests metrics.Counter
	mErrors   metrics.Counter
}

// NewGemini builds the client. Without an API key no client is created and
// every call fails with ErrNoAPIKey.
func NewGemini(ctx context.Context, options GeminiOptions) (*Gemini, error) {
	gemini := &Gemini{
		options:   options,
		mRequests: metrics.GetOrRegisterCounter("fitai-scan-service.Chat.Requests", nil),
		mErrors:   metrics.GetOrRegisterCounter("fitai-scan-service.Chat.Errors", nil),
	}
	if options.APIKey == "" {
		return gemini, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      options.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: options.BaseURL},
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to create gemini client")
	}
	gemini.client = client
	return gemini, nil
}

func (g *Gemini) generateConfig() *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(g.options.Temperature)),
		MaxOutputTokens: int32(g.options.MaxOutputTokens),
		CandidateCount:  1,
		StopSequences:   []string{},
	}
	for _, category := range harmCategories {
		config.SafetySettings = append(config.SafetySettings, &genai.SafetySetting{
			Category:  category,
			Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
		})
	}
	return config
}

// GenerateContent sends a single prompt and returns the text of the first candidate
func (g *Gemini) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if g.client == nil {
		return "", ErrNoAPIKey
	}
	g.mRequests.Inc(1)

	if g.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.options.Timeout)
		defer cancel()
	}

	response, err := g.client.Models.GenerateContent(ctx, g.options.Model, genai.Text(prompt), g.generateConfig())
	if err != nil {
		g.mErrors.Inc(1)
		if ctx.Err() == context.DeadlineExceeded {
			return "", ErrTimeout
		}
		return "", errors.Wrap(err, "API request failed")
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil ||
		len(response.Candidates[0].Content.Parts) == 0 {
		g.mErrors.Inc(1)
		return "", ErrNoContent
	}

	text := response.Text()
	trimmed := strings.TrimSpace(text)
	logrus.WithFields(logrus.Fields{
		"Method":    "chat.GenerateContent",
		"Length":    len(text),
		"Truncated": trimmed != "" && !strings.ContainsAny(trimmed[len(trimmed)-1:], ".!?"),
	}).Debug("response received")
	return text, nil
}
