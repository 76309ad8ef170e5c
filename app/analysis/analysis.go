/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package analysis

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/fitai/fitai-scan-service/app/profile"
)

const lbsPerKg = 2.20462

// Goals and levels as submitted by the form
const (
	GoalMuscleGain = "muscle-gain"
	GoalWeightLoss = "weight-loss"

	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// ErrIncompleteProfile is returned when height or weight cannot be read
var ErrIncompleteProfile = errors.New("height and weight are required")

// Profile is the typed view of a user data record used by the analysis
type Profile struct {
	HeightCm, WeightKg, Age   float64
	Gender                    string
	FitnessLevel, PrimaryGoal string
	// Muscles holds the camera muscle estimates, nil before a capture
	Muscles map[string]float64
}

// FromDocument reads the fields the analysis needs
func FromDocument(doc profile.Document) (Profile, error) {
	height, okHeight := doc.Float("height")
	weight, okWeight := doc.Float("weight")
	if !okHeight || !okWeight || height <= 0 || weight <= 0 {
		return Profile{}, ErrIncompleteProfile
	}
	age, _ := doc.Float("age")

	p := Profile{
		HeightCm:     height,
		WeightKg:     weight,
		Age:          age,
		Gender:       doc.String("gender"),
		FitnessLevel: doc.String("fitnessLevel"),
		PrimaryGoal:  doc.String("primaryGoal"),
	}
	if camera, ok := doc.Object("cameraResults"); ok {
		if estimates, ok := camera.Object("muscleEstimates"); ok {
			p.Muscles = map[string]float64{}
			for key := range estimates {
				if value, ok := estimates.Float(key); ok {
					p.Muscles[key] = value
				}
			}
		}
	}
	return p, nil
}

type Metric struct {
	Value       string `json:"value"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

type Length struct {
	Cm      string `json:"cm"`
	Inches  string `json:"inches"`
	Display string `json:"display"`
}

type Weight struct {
	Kg      string `json:"kg"`
	Lbs     string `json:"lbs"`
	Display string `json:"display"`
}

type Measurements struct {
	Height Length `json:"height"`
	Weight Weight `json:"weight"`
}

type MuscleMass struct {
	Value       string `json:"value"`
	Unit        string `json:"unit"`
	Description string `json:"description"`
}

type FitnessScore struct {
	Value       int    `json:"value"`
	Max         int    `json:"max"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// Analysis is the full report returned by the fitness analysis endpoint
type Analysis struct {
	BMI               Metric           `json:"bmi"`
	Measurements      Measurements     `json:"measurements"`
	BodyFatPercentage Metric           `json:"bodyFatPercentage"`
	MuscleMass        MuscleMass       `json:"muscleMass"`
	FitnessScore      FitnessScore     `json:"fitnessScore"`
	AreasToFocus      []string         `json:"areasToFocus"`
	WorkoutPlan       WeeklyPlan       `json:"workoutPlan"`
	GymLocation       GymLocation      `json:"gymLocation"`
	Nutrition         Nutrition        `json:"nutrition"`
	UserData          profile.Document `json:"userData,omitempty"`
}

// Analyze builds the report for a stored user data record
func Analyze(doc profile.Document) (*Analysis, error) {
	p, err := FromDocument(doc)
	if err != nil {
		return nil, err
	}
	analysis := Build(p)
	analysis.UserData = doc
	return analysis, nil
}

// Build computes every section of the report from p
func Build(p Profile) *Analysis {
	bmi := BMI(p.HeightCm, p.WeightKg)
	bmiCategory := BMICategory(bmi)
	bodyFat := BodyFat(p.Gender, bmi)
	muscleKg := p.WeightKg * 0.4
	muscleLbs := muscleKg * lbsPerKg
	score := Score(bmi, p.FitnessLevel)
	heightInches := p.HeightCm / 2.54
	weightLbs := p.WeightKg * lbsPerKg

	return &Analysis{
		BMI: Metric{
			Value:    fixed(bmi, 1),
			Category: bmiCategory,
			Description: fmt.Sprintf("Your BMI of %s shows you're %s, and we're excited to help you reach your goals!",
				fixed(bmi, 1), strings.ToLower(bmiCategory)),
		},
		Measurements: Measurements{
			Height: Length{
				Cm:      fixed(p.HeightCm, 0),
				Inches:  fixed(heightInches, 0),
				Display: fmt.Sprintf("%d'%d\"", int(math.Floor(heightInches/12)), int(math.Round(math.Mod(heightInches, 12)))),
			},
			Weight: Weight{
				Kg:      fixed(p.WeightKg, 1),
				Lbs:     fixed(weightLbs, 1),
				Display: fixed(weightLbs, 1) + " lbs",
			},
		},
		BodyFatPercentage: Metric{
			Value:    fixed(bodyFat, 1),
			Category: BodyFatCategory(bodyFat),
			Description: fmt.Sprintf("Your estimated body fat percentage of %s%% shows %s",
				fixed(bodyFat, 1), pick(bodyFat < 15, "excellent muscle definition", "great potential for building lean muscle")),
		},
		MuscleMass: MuscleMass{
			Value: fixed(muscleLbs, 1),
			Unit:  "lbs",
			Description: fmt.Sprintf("Your estimated muscle mass of %s lbs provides a %s foundation for building even more strength",
				fixed(muscleLbs, 1), pick(muscleKg > 50, "strong", "solid")),
		},
		FitnessScore: FitnessScore{
			Value:    score,
			Max:      100,
			Category: ScoreCategory(score),
			Description: fmt.Sprintf("You have a %s fitness foundation with %s potential for growth",
				pick(score >= 80, "strong", "solid"), pick(score >= 80, "amazing", "great")),
		},
		AreasToFocus: AreasToFocus(p.PrimaryGoal, p.Muscles),
		WorkoutPlan:  Plan(p.PrimaryGoal, p.FitnessLevel),
		GymLocation:  DefaultGym,
		Nutrition:    NutritionPlan(p),
	}
}

// BMI is weight in kg over height in meters squared
func BMI(heightCm, weightKg float64) float64 {
	meters := heightCm / 100
	return weightKg / (meters * meters)
}

func BMICategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "Building up strength"
	case bmi >= 30:
		return "Ready for transformation"
	case bmi >= 25:
		return "Working towards optimal health"
	}
	return "Healthy weight range"
}

// BodyFat estimates body fat percentage from BMI bands
func BodyFat(gender string, bmi float64) float64 {
	bands := [4]float64{15, 20, 28, 35}
	if gender == "male" {
		bands = [4]float64{8, 12, 18, 25}
	}
	switch {
	case bmi < 20:
		return bands[0]
	case bmi < 25:
		return bands[1]
	case bmi < 30:
		return bands[2]
	}
	return bands[3]
}

func BodyFatCategory(bodyFat float64) string {
	switch {
	case bodyFat < 10:
		return "Elite Level"
	case bodyFat < 15:
		return "Athletic"
	case bodyFat < 20:
		return "Great Shape"
	}
	return "Ready to Transform"
}

// Score starts at 70 and rewards a healthy BMI and training experience
func Score(bmi float64, level string) int {
	score := 70
	if bmi >= 18.5 && bmi < 25 {
		score += 15
	}
	switch level {
	case LevelAdvanced:
		score += 10
	case LevelIntermediate:
		score += 5
	}
	return score
}

func ScoreCategory(score int) string {
	switch {
	case score >= 90:
		return "Outstanding"
	case score >= 80:
		return "Excellent"
	case score >= 70:
		return "Great Potential"
	}
	return "Ready to Grow"
}

// AreasToFocus lists the goal areas followed by weak areas from the camera, without repeats
func AreasToFocus(goal string, muscles map[string]float64) []string {
	var areas []string
	switch goal {
	case GoalMuscleGain:
		areas = []string{"chest", "back", "legs"}
	case GoalWeightLoss:
		areas = []string{"core", "cardio", "full-body"}
	default:
		areas = []string{"strength", "endurance", "flexibility"}
	}

	if muscles != nil {
		if below(muscles, "chest", 30) {
			areas = append(areas, "chest")
		}
		if below(muscles, "shoulders", 50) {
			areas = append(areas, "shoulders")
		}
		if below(muscles, "legs", 50) {
			areas = append(areas, "legs")
		}
	}

	seen := map[string]bool{}
	unique := areas[:0]
	for _, area := range areas {
		if !seen[area] {
			seen[area] = true
			unique = append(unique, area)
		}
	}
	return unique
}

func below(muscles map[string]float64, name string, limit float64) bool {
	value, ok := muscles[name]
	return ok && value < limit
}

func fixed(value float64, digits int) string {
	return strconv.FormatFloat(value, 'f', digits, 64)
}

func pick(condition bool, yes, no string) string {
	if condition {
		return yes
	}
	return no
}
