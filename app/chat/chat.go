/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fitai/fitai-scan-service/app/knowledge"
)

const (
	// MaxHistory is the number of messages kept in the conversation history
	MaxHistory = 50
	// contextMessages is how much of the history is sent with each prompt
	contextMessages = 10
)

const systemPrompt = `You are FitAI, a specialized AI fitness and nutrition assistant. You are EXCLUSIVELY focused on helping users with their health and fitness journey.

🎯 YOUR EXPERTISE AREAS (ONLY THESE TOPICS):
1. 💪 FITNESS & EXERCISE: Workouts, exercises, training programs, form, muscle groups, strength training, cardio
2. 🥗 NUTRITION & DIET: Food information, calories, macronutrients, meal planning, supplements, weight management
3. 🏃 WELLNESS & HEALTH: Recovery, sleep, hydration, flexibility, injury prevention, fitness goals
4. 📱 FITAI PRODUCT: Our fitness platform, features, database, and how to achieve fitness goals using our system

⚠️ STRICT RULES - NO EXCEPTIONS:
- You MUST ONLY discuss fitness, nutrition, wellness, and health topics
- If asked about ANYTHING else (politics, current events, entertainment, general technology, weather, etc.), immediately use the redirect response
- Always prioritize database information when available
- Keep responses SHORT and CONCISE (2-3 sentences max unless detailed explanation is specifically requested)
- Be encouraging, motivational, and provide actionable advice
- Focus on the most important points only

🚫 MANDATORY REDIRECT for off-topic questions:
"I'm FitAI - I help with fitness, nutrition, and wellness! 💪 What fitness goal can I help you with?"

🎯 RESPONSE STYLE:
- Keep answers brief and to the point
- Use bullet points for lists when appropriate
- Use fitness emojis sparingly (💪🏃🥗🏋️‍♂️)
- Provide ONE key actionable tip per response
- End with a short engaging question when relevant

`

const noContext = "\nNo specific database information found for this query. Provide general fitness/nutrition guidance.\n"

// Message is one turn of the conversation
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Generator produces model text for a prompt
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// ContextSource looks up database context for a user message
type ContextSource interface {
	QueryForContext(ctx context.Context, message string) (*knowledge.Result, error)
}

// BuildPrompt assembles the system prompt, the database context, the previous
// conversation and the new user message
func BuildPrompt(message string, previous []Message, databaseContext string) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	if databaseContext != "" {
		b.WriteString(databaseContext)
	} else {
		b.WriteString(noContext)
	}

	if len(previous) > 0 {
		b.WriteString("Previous conversation:\n")
		for _, m := range previous {
			b.WriteString(m.Role + ": " + m.Content + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("User: " + message + "\nAssistant:")
	return b.String()
}

// Assistant answers chat messages with database grounding and keeps the history
type Assistant struct {
	Generator Generator
	// Knowledge is optional
	Knowledge ContextSource

	mutex   sync.Mutex
	history []Message
	now     func() time.Time
}

func NewAssistant(generator Generator, source ContextSource) *Assistant {
	return &Assistant{Generator: generator, Knowledge: source, now: time.Now}
}

// Reply answers message. Knowledge lookups that fail are logged and the
// prompt falls back to general guidance.
func (assistant *Assistant) Reply(ctx context.Context, message string) (string, error) {
	databaseContext := ""
	if assistant.Knowledge != nil {
		result, err := assistant.Knowledge.QueryForContext(ctx, message)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"Method": "chat.Reply",
				"Action": "QueryForContext",
				"Error":  err.Error(),
			}).Warn("knowledge lookup failed")
		} else {
			databaseContext = knowledge.FormatContext(result)
		}
	}

	previous := assistant.recent(contextMessages)
	response, err := assistant.Generator.GenerateContent(ctx, BuildPrompt(message, previous, databaseContext))
	if err != nil {
		return "", err
	}

	assistant.append("user", message)
	assistant.append("assistant", response)
	return response, nil
}

// History returns a copy of the conversation so far
func (assistant *Assistant) History() []Message {
	return assistant.recent(MaxHistory)
}

func (assistant *Assistant) ClearHistory() {
	assistant.mutex.Lock()
	defer assistant.mutex.Unlock()
	assistant.history = nil
}

func (assistant *Assistant) recent(n int) []Message {
	assistant.mutex.Lock()
	defer assistant.mutex.Unlock()

	start := len(assistant.history) - n
	if start < 0 {
		start = 0
	}
	out := make([]Message, len(assistant.history)-start)
	copy(out, assistant.history[start:])
	return out
}

func (assistant *Assistant) append(role, content string) {
	assistant.mutex.Lock()
	defer assistant.mutex.Unlock()

	now := time.Now
	if assistant.now != nil {
		now = assistant.now
	}
	assistant.history = append(assistant.history, Message{
		Role:      role,
		Content:   content,
		Timestamp: now().UTC().Format("2006-01-02T15:04:05.000Z"),
	})
	if len(assistant.history) > MaxHistory {
		assistant.history = append([]Message(nil), assistant.history[len(assistant.history)-MaxHistory:]...)
	}
}
