/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package knowledge

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	exerciseLimit  = 5
	nutritionLimit = 5
	gymLimit       = 5
	machineLimit   = 8
	diningFallback = 10
	maxKeywords    = 10
)

var fitnessTerms = []string{
	// training
	"exercise", "workout", "training", "fitness", "gym", "muscle", "strength", "cardio", "lift", "rep", "set",
	"push", "pull", "squat", "deadlift", "bench", "run", "jog", "walk", "swim", "bike", "cycling",
	"climb", "climbing", "rock", "wall", "bouldering", "rappelling", "belay",
	// body
	"chest", "back", "legs", "arms", "shoulders", "abs", "core", "biceps", "triceps", "glutes", "calves",
	// nutrition
	"nutrition", "diet", "food", "calories", "protein", "carbs", "fat", "fiber", "vitamins", "minerals",
	"meal", "eat", "drink", "supplement", "weight", "lose", "gain", "bulk", "cut", "macro", "micro",
	// wellness
	"health", "wellness", "recovery", "sleep", "hydration", "stretch", "flexibility", "injury", "form",
	// goals
	"goal", "target", "plan", "program", "routine", "schedule", "progress", "result", "transform",
	// facilities
	"facility", "center", "machine", "equipment", "treadmill", "elliptical", "barbell", "dumbbell",
	"location", "hours", "access", "campus", "available", "condition", "brand", "model",
	"gyms", "facilities", "centers", "machines", "equipments",
	// dining
	"dining", "cafeteria", "restaurant", "food court", "cafe", "coffee", "lunch", "dinner", "breakfast",
	"snack", "where to eat", "food options", "menu", "kitchen", "canteen", "eatery", "bistro", "grill",
	"deli", "bakery", "pizza", "salad bar", "buffet", "takeout", "delivery", "grab and go",
}

var stopWords = set("the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with", "by",
	"is", "are", "was", "were", "what", "how", "when", "where", "why", "does", "have", "has", "had", "will",
	"would", "could", "should", "can", "may", "might", "must", "do", "did", "get", "got", "there", "their",
	"they", "them", "this", "that", "these", "those")

// Trigger words that decide which tables are searched
var (
	exerciseTriggers  = set("exercise", "workout", "training", "fitness", "muscle", "strength", "cardio")
	nutritionTriggers = set("nutrition", "diet", "food", "calories", "protein", "carbs", "fat", "meal", "eat")
	gymTriggers       = set("gym", "gyms", "facility", "facilities", "center", "centers", "location", "campus",
		"hours", "access", "climb", "climbing", "wall", "rock", "bouldering")
	climbingTriggers = set("climb", "climbing", "wall", "rock", "bouldering")
	machineTriggers  = set("machine", "equipment", "treadmill", "elliptical", "barbell", "dumbbell", "bench",
		"rack", "available", "condition")
	diningTriggers = set("dining", "cafeteria", "restaurant", "food", "cafe", "coffee", "lunch", "dinner",
		"breakfast", "snack", "eat", "menu", "kitchen", "canteen", "eatery", "bistro", "grill", "deli", "bakery",
		"pizza", "salad", "buffet", "takeout", "delivery", "campus", "locations", "location", "burrito",
		"burritos", "taco", "tacos", "sandwich", "sandwiches", "wrap", "wraps", "bowl", "bowls", "soup",
		"soups", "bread", "cornbread", "muffin", "muffins", "bagel", "bagels", "pasta", "noodles", "rice",
		"chicken", "beef", "pork", "fish", "fries", "chips", "cookies", "cake", "dessert", "desserts", "ice",
		"cream", "milkshake", "milkshakes", "smoothie", "smoothies", "juice", "soda", "drink", "drinks", "tea",
		"hot", "cold", "fresh", "fried", "grilled", "baked", "steamed")
)

var singular = map[string]string{"gyms": "gym", "facilities": "facility", "centers": "center"}

var punctuation = regexp.MustCompile(`[^\w\s]`)

func set(words ...string) map[string]bool {
	out := make(map[string]bool, len(words))
	for _, w := range words {
		out[w] = true
	}
	return out
}

func anyIn(keywords []string, triggers map[string]bool) bool {
	for _, k := range keywords {
		if triggers[k] {
			return true
		}
	}
	return false
}

// IsFitnessRelated reports whether the message mentions any fitness, nutrition,
// facility or dining term as a substring
func IsFitnessRelated(message string) bool {
	lower := strings.ToLower(message)
	for _, term := range fitnessTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// ExtractKeywords lowercases the message, drops punctuation and stop words and
// keeps the first ten words longer than two characters
func ExtractKeywords(message string) []string {
	cleaned := punctuation.ReplaceAllString(strings.ToLower(message), "")
	keywords := []string{}
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 2 || stopWords[word] {
			continue
		}
		keywords = append(keywords, word)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

// Result is the database context found for a chat message
type Result struct {
	// OffTopic is set when the message is not about fitness at all
	OffTopic  bool
	Exercises []Exercise
	Nutrition []Food
	Gyms      []Gym
	Machines  []Machine
	Dining    []DiningLocation
}

func (r *Result) empty() bool {
	return !r.OffTopic && len(r.Exercises) == 0 && len(r.Nutrition) == 0 && len(r.Gyms) == 0 &&
		len(r.Machines) == 0 && len(r.Dining) == 0
}

// QueryForContext searches the tables whose trigger words appear in the message.
// It returns nil when nothing relevant was found.
func (store *Store) QueryForContext(ctx context.Context, message string) (*Result, error) {
	if !IsFitnessRelated(message) {
		return &Result{OffTopic: true}, nil
	}

	keywords := ExtractKeywords(message)
	logrus.WithFields(logrus.Fields{
		"Method":   "knowledge.QueryForContext",
		"Keywords": keywords,
	}).Debug("searching knowledge base")

	result := &Result{}
	var err error

	if anyIn(keywords, exerciseTriggers) {
		if result.Exercises, err = store.searchExercises(ctx, keywords, exerciseLimit); err != nil {
			return nil, err
		}
	}

	if anyIn(keywords, nutritionTriggers) {
		if result.Nutrition, err = store.searchNutrition(ctx, keywords, nutritionLimit); err != nil {
			return nil, err
		}
	}

	if anyIn(keywords, gymTriggers) {
		terms := make([]string, 0, len(keywords)+9)
		for _, k := range keywords {
			if s, ok := singular[k]; ok {
				k = s
			}
			terms = append(terms, k)
		}
		terms = append(terms, "fitness", "recreation", "training")
		if anyIn(keywords, climbingTriggers) {
			terms = append(terms, "climb", "climbing", "wall", "rock", "bouldering", "arc")
		}
		if result.Gyms, err = store.searchGyms(ctx, terms, gymLimit); err != nil {
			return nil, err
		}
	}

	if anyIn(keywords, machineTriggers) {
		if result.Machines, err = store.searchMachines(ctx, keywords, machineLimit); err != nil {
			return nil, err
		}
	}

	if anyIn(keywords, diningTriggers) {
		if result.Dining, err = store.searchDining(ctx, keywords); err != nil {
			return nil, err
		}
	}

	if result.empty() {
		return nil, nil
	}
	return result, nil
}

// searchDining matches locations by name, place or type, then by the food they
// serve, and falls back to a general listing when nothing matched
func (store *Store) searchDining(ctx context.Context, keywords []string) ([]DiningLocation, error) {
	var found []DiningLocation
	for _, keyword := range keywords {
		where, args := likeAny([]string{"name", "location", "type"}, []string{keyword})
		matches, err := store.diningLocations(ctx, where, args, 0)
		if err != nil {
			return nil, err
		}
		found = append(found, matches...)
	}

	all, err := store.diningLocations(ctx, "", nil, 0)
	if err != nil {
		return nil, err
	}
	for _, keyword := range keywords {
		exact := servingFood(all, func(food string) bool { return food == keyword })
		if len(exact) == 0 {
			exact = servingFood(all, func(food string) bool {
				return strings.Contains(strings.ToLower(food), keyword)
			})
		}
		found = append(found, exact...)
	}

	seen := map[int64]bool{}
	unique := found[:0]
	for _, location := range found {
		if !seen[location.ID] {
			seen[location.ID] = true
			unique = append(unique, location)
		}
	}
	if len(unique) > 0 {
		return unique, nil
	}

	return store.diningLocations(ctx, "", nil, diningFallback)
}

func servingFood(locations []DiningLocation, match func(string) bool) []DiningLocation {
	var out []DiningLocation
	for _, location := range locations {
		for _, food := range location.FoodAvailable {
			if match(food) {
				out = append(out, location)
				break
			}
		}
	}
	return out
}

// OffTopicNotice is added to the prompt when the message is not about fitness
const OffTopicNotice = "\n⚠️ OFF-TOPIC QUERY DETECTED: This question is not related to fitness, nutrition, or wellness. " +
	"You MUST redirect the user to fitness topics using the redirect phrase.\n"

// FormatContext renders a Result as the database section of the chat prompt
func FormatContext(result *Result) string {
	if result == nil || result.empty() {
		return ""
	}
	if result.OffTopic {
		return OffTopicNotice
	}

	var b strings.Builder
	b.WriteString("\n\n📊 RELEVANT DATABASE INFORMATION:\n")

	if len(result.Exercises) > 0 {
		b.WriteString("\nExercises:\n")
		for _, e := range result.Exercises {
			b.WriteString("- " + e.Name + ": " + e.Description + " (" + e.MuscleGroup + ")\n")
		}
	}

	if len(result.Nutrition) > 0 {
		b.WriteString("\nNutrition Information:\n")
		for _, f := range result.Nutrition {
			b.WriteString("- " + f.FoodName + ": " + number(f.Calories) + " calories, " + number(f.Protein) + "g protein\n")
		}
	}

	if len(result.Gyms) > 0 {
		b.WriteString("\nCollege Gyms:\n")
		for _, g := range result.Gyms {
			b.WriteString("- " + g.Name + ": " + g.Description + "\n")
			b.WriteString("  Location: " + g.Location)
			b.WriteString("\n  Hours: " + g.HoursOperation + "\n")
			if len(g.Amenities) > 0 {
				b.WriteString("  Amenities: " + strings.Join(g.Amenities, ", ") + "\n")
			}
		}
	}

	if len(result.Machines) > 0 {
		b.WriteString("\nGym Equipment:\n")
		for _, m := range result.Machines {
			b.WriteString("- " + m.Name)
			if m.Brand != "" {
				b.WriteString(" (" + m.Brand + ")")
			}
			b.WriteString("\n  Type: " + m.MachineType)
			if len(m.MuscleGroups) > 0 {
				b.WriteString(" | Targets: " + strings.Join(m.MuscleGroups, ", "))
			}
			b.WriteString("\n  Status: " + m.AvailabilityStatus + " | Condition: " + m.Condition)
			if m.Quantity > 1 {
				b.WriteString(" | Quantity: " + strconv.Itoa(m.Quantity))
			}
			if m.GymName != "" {
				b.WriteString("\n  Location: " + m.GymName)
			}
			if m.Description != "" {
				b.WriteString("\n  " + m.Description)
			}
			b.WriteString("\n")
		}
	}

	if len(result.Dining) > 0 {
		b.WriteString("\nDining Locations:\n")
		for _, d := range result.Dining {
			b.WriteString("- " + d.Name)
			if d.Type != "" {
				b.WriteString(" (" + d.Type + ")")
			}
			b.WriteString("\n  Location: " + d.Location)
			if len(d.FoodAvailable) > 0 {
				b.WriteString("\n  Available Food: " + strings.Join(d.FoodAvailable, ", "))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\nPlease use this information to provide more personalized and accurate responses.\n")
	return b.String()
}

func number(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
