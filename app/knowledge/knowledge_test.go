/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package knowledge

import (
	"context"
	"database/sql"
	"reflect"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) *Store {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("unable to open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store, err := New(context.Background(), db)
	if err != nil {
		t.Fatalf("unable to create knowledge store: %v", err)
	}
	return store
}

func TestIsFitnessRelated(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"How many sets of squats should I do?", true},
		{"Any good GRAB AND GO spots?", true},
		{"Where is the food court", true},
		{"What is the capital of France?", false},
		{"", false},
	}
	for _, test := range tests {
		if got := IsFitnessRelated(test.message); got != test.want {
			t.Errorf("IsFitnessRelated(%q) = %v, want %v", test.message, got, test.want)
		}
	}
}

func TestExtractKeywords(t *testing.T) {
	got := ExtractKeywords("Hey! What's the best way to build my_chest, quickly?")
	want := []string{"hey", "whats", "best", "way", "build", "my_chest", "quickly"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	long := ExtractKeywords("one two three four five six seven eight nine ten eleven twelve thirteen")
	if len(long) != 10 || long[9] != "eleven" {
		t.Errorf("expected ten keywords ending in eleven, got %v", long)
	}
}

func TestQueryOffTopic(t *testing.T) {
	store := newTestStore(t)
	result, err := store.QueryForContext(context.Background(), "What is the capital of France?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || !result.OffTopic {
		t.Fatalf("expected an off-topic result, got %+v", result)
	}
	if FormatContext(result) != OffTopicNotice {
		t.Error("expected the off-topic notice")
	}
}

func TestQueryNothingFound(t *testing.T) {
	store := newTestStore(t)
	result, err := store.QueryForContext(context.Background(), "I want to improve my sleep")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Errorf("expected no context, got %+v", result)
	}
	if FormatContext(result) != "" {
		t.Error("expected empty context text")
	}
}

func TestQueryExercises(t *testing.T) {
	store := newTestStore(t)
	result, err := store.QueryForContext(context.Background(), "Show me a strength workout")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || len(result.Exercises) != 1 || result.Exercises[0].Name != "Strength Circuit" {
		t.Fatalf("expected the strength circuit, got %+v", result)
	}
	text := FormatContext(result)
	if !strings.Contains(text, "\nExercises:\n- Strength Circuit: Goblet squats, push-ups and dumbbell rows back to back with minimal rest (full body)\n") {
		t.Errorf("unexpected context text %q", text)
	}
	if !strings.HasPrefix(text, "\n\n📊 RELEVANT DATABASE INFORMATION:\n") {
		t.Errorf("missing header in %q", text)
	}
}

func TestQueryClimbing(t *testing.T) {
	store := newTestStore(t)
	result, err := store.QueryForContext(context.Background(), "Where can I go rock climbing on campus?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || len(result.Gyms) != 4 {
		t.Fatalf("expected every recreation center, got %+v", result)
	}
	// campus is also a dining trigger and matches by location
	var names []string
	for _, d := range result.Dining {
		names = append(names, d.Name)
	}
	if !reflect.DeepEqual(names, []string{"Traditions at Scott", "Curl Market"}) {
		t.Errorf("unexpected dining matches %v", names)
	}

	text := FormatContext(result)
	if !strings.Contains(text, "- Recreation and Physical Activity Center: Main campus fitness facility with weight rooms, pools and a climbing wall\n"+
		"  Location: 337 W 17th Ave\n  Hours: 6:00 AM - 11:00 PM weekdays, 8:00 AM - 10:00 PM weekends\n"+
		"  Amenities: Weight room, Cardio deck, Natatorium, Climbing wall, Group fitness studios\n") {
		t.Errorf("unexpected gym text %q", text)
	}
	if !strings.Contains(text, "- Jesse Owens South Recreation Center: South campus gym with a functional training turf\n"+
		"  Location: 175 W 11th Ave\n  Hours: 7:00 AM - 9:00 PM\n\nDining Locations:\n") {
		t.Errorf("expected no amenities line for an empty list in %q", text)
	}
}

func TestQueryMachines(t *testing.T) {
	store := newTestStore(t)
	result, err := store.QueryForContext(context.Background(), "Is the treadmill available?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || len(result.Machines) != 1 {
		t.Fatalf("expected the treadmill, got %+v", result)
	}
	want := "\nGym Equipment:\n- Treadmill (Precor)\n  Type: cardio | Targets: legs, cardio\n" +
		"  Status: available | Condition: excellent | Quantity: 24\n" +
		"  Location: Recreation and Physical Activity Center\n  Touchscreen console with incline up to 15 percent\n"
	if text := FormatContext(result); !strings.Contains(text, want) {
		t.Errorf("unexpected machine text %q", text)
	}
}

func TestQueryDiningByFood(t *testing.T) {
	store := newTestStore(t)
	result, err := store.QueryForContext(context.Background(), "I want to eat smoothies for lunch")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || len(result.Dining) != 1 || result.Dining[0].Name != "Curl Market" {
		t.Fatalf("expected curl market, got %+v", result)
	}
	want := "- Curl Market (market)\n  Location: North Campus, Curl Hall\n  Available Food: Grab and go salads, Smoothies, Burritos, rice\n"
	if text := FormatContext(result); !strings.Contains(text, want) {
		t.Errorf("unexpected dining text %q", text)
	}
}

func TestQueryDiningFallback(t *testing.T) {
	store := newTestStore(t)
	result, err := store.QueryForContext(context.Background(), "I need a snack")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || len(result.Dining) != 5 {
		t.Fatalf("expected every dining location, got %+v", result)
	}
}

func TestFormatNutrition(t *testing.T) {
	text := FormatContext(&Result{Nutrition: []Food{{FoodName: "Banana", Calories: 105, Protein: 1.3}}})
	want := "\n\n📊 RELEVANT DATABASE INFORMATION:\n\nNutrition Information:\n- Banana: 105 calories, 1.3g protein\n" +
		"\nPlease use this information to provide more personalized and accurate responses.\n"
	if text != want {
		t.Errorf("got %q, want %q", text, want)
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seed := "exercises:\n  - id: 1\n    name: Incline Bench Press\n    muscle_group: chest\n"
	if err := store.Load(ctx, strings.NewReader(seed)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	exercises, err := store.searchExercises(ctx, []string{"bench"}, exerciseLimit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(exercises) != 1 || exercises[0].Name != "Incline Bench Press" {
		t.Errorf("expected the replaced exercise, got %+v", exercises)
	}

	if err := store.Load(ctx, strings.NewReader("exercises: [")); err == nil {
		t.Error("expected a parse error")
	}
}
