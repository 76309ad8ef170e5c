/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package analysis

import (
	"math"
	"strings"
)

type GymLocation struct {
	Name             string   `json:"name"`
	Address          string   `json:"address"`
	Hours            string   `json:"hours"`
	Features         []string `json:"features"`
	RecommendedTimes []string `json:"recommendedTimes"`
}

// DefaultGym is the campus recreation center recommended to every user
var DefaultGym = GymLocation{
	Name:             "Ohio State University Recreation Center",
	Address:          "337 W 17th Ave, Columbus, OH 43210",
	Hours:            "6:00 AM - 11:00 PM (Mon-Fri), 8:00 AM - 10:00 PM (Weekends)",
	Features:         []string{"Full weight room", "Cardio equipment", "Group fitness classes", "Indoor track", "Basketball courts"},
	RecommendedTimes: []string{"Early morning (6-8 AM)", "Late evening (8-10 PM)"},
}

type Calories struct {
	Target      int    `json:"target"`
	Description string `json:"description"`
}

type Macro struct {
	Grams       int    `json:"grams"`
	Percentage  int    `json:"percentage"`
	Description string `json:"description"`
}

type Macros struct {
	Protein Macro `json:"protein"`
	Carbs   Macro `json:"carbs"`
	Fats    Macro `json:"fats"`
}

type Meal struct {
	Name        string   `json:"name"`
	Calories    int      `json:"calories"`
	Protein     int      `json:"protein"`
	Carbs       int      `json:"carbs"`
	Fats        int      `json:"fats"`
	Ingredients []string `json:"ingredients,omitempty"`
}

type Meals struct {
	Breakfast Meal   `json:"breakfast"`
	Lunch     Meal   `json:"lunch"`
	Dinner    Meal   `json:"dinner"`
	Snacks    []Meal `json:"snacks"`
}

type Nutrition struct {
	DailyCalories Calories `json:"dailyCalories"`
	Macros        Macros   `json:"macros"`
	Meals         Meals    `json:"meals"`
}

// DefaultMeals is the sample day of eating included with every plan
var DefaultMeals = Meals{
	Breakfast: Meal{Name: "Protein Oatmeal", Calories: 520, Protein: 30, Carbs: 55, Fats: 15,
		Ingredients: []string{"1 cup oats", "1 scoop protein powder", "1 banana", "1 tbsp almond butter", "1 cup almond milk"}},
	Lunch: Meal{Name: "Grilled Chicken Salad", Calories: 580, Protein: 45, Carbs: 35, Fats: 25,
		Ingredients: []string{"8oz grilled chicken breast", "Mixed greens", "1/2 avocado", "Cherry tomatoes", "Olive oil dressing"}},
	Dinner: Meal{Name: "Salmon with Sweet Potato", Calories: 650, Protein: 50, Carbs: 60, Fats: 30,
		Ingredients: []string{"8oz salmon fillet", "1 large sweet potato", "Steamed broccoli", "1 tbsp olive oil"}},
	Snacks: []Meal{
		{Name: "Greek Yogurt with Berries", Calories: 250, Protein: 20, Carbs: 30, Fats: 8},
		{Name: "Protein Shake", Calories: 300, Protein: 30, Carbs: 20, Fats: 10},
	},
}

// DailyCalories is the Mifflin-St Jeor BMR scaled by activity and adjusted for the goal
func DailyCalories(p Profile) int {
	bmr := 10*p.WeightKg + 6.25*p.HeightCm - 5*p.Age
	if p.Gender == "male" {
		bmr += 5
	} else {
		bmr -= 161
	}

	multiplier := 1.2
	switch p.FitnessLevel {
	case LevelBeginner:
		multiplier = 1.375
	case LevelIntermediate:
		multiplier = 1.55
	case LevelAdvanced:
		multiplier = 1.725
	}

	tdee := bmr * multiplier
	switch p.PrimaryGoal {
	case GoalMuscleGain:
		tdee += 300
	case GoalWeightLoss:
		tdee -= 500
	}
	return int(math.Round(tdee))
}

// MacroSplit derives grams from body weight and calorie shares, then reports
// the share each actually contributes
func MacroSplit(p Profile, calories int) Macros {
	proteinPerKg, carbShare, fatShare := 1.6, 0.50, 0.20
	switch p.PrimaryGoal {
	case GoalMuscleGain:
		proteinPerKg, carbShare, fatShare = 2.2, 0.45, 0.25
	case GoalWeightLoss:
		proteinPerKg, carbShare, fatShare = 2.0, 0.35, 0.30
	}

	kcal := float64(calories)
	protein := int(math.Round(p.WeightKg * proteinPerKg))
	carbs := int(math.Round(kcal * carbShare / 4))
	fats := int(math.Round(kcal * fatShare / 9))

	share := func(grams, perGram int) int {
		if calories == 0 {
			return 0
		}
		return int(math.Round(float64(grams*perGram) / kcal * 100))
	}

	return Macros{
		Protein: Macro{Grams: protein, Percentage: share(protein, 4), Description: "Essential for muscle building and recovery"},
		Carbs:   Macro{Grams: carbs, Percentage: share(carbs, 4), Description: "Primary energy source for workouts"},
		Fats:    Macro{Grams: fats, Percentage: share(fats, 9), Description: "Important for hormone production and nutrient absorption"},
	}
}

func NutritionPlan(p Profile) Nutrition {
	calories := DailyCalories(p)
	return Nutrition{
		DailyCalories: Calories{
			Target: calories,
			Description: "Based on your " + strings.Replace(p.PrimaryGoal, "-", " ", 1) +
				" goals and " + p.FitnessLevel + " activity level",
		},
		Macros: MacroSplit(p, calories),
		Meals:  DefaultMeals,
	}
}
