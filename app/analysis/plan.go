/* Apache v2 license
*  Copyright (C) 2026 FitAI Authors
*
*  SPDX-License-Identifier: Apache-2.0
 */

package analysis

type Exercise struct {
	Name string `json:"name"`
	Sets int    `json:"sets"`
	Reps string `json:"reps"`
	Rest string `json:"rest"`
}

type Day struct {
	Focus     string     `json:"focus"`
	Exercises []Exercise `json:"exercises"`
}

type WeeklyPlan struct {
	Monday    Day `json:"monday"`
	Tuesday   Day `json:"tuesday"`
	Wednesday Day `json:"wednesday"`
	Thursday  Day `json:"thursday"`
	Friday    Day `json:"friday"`
	Saturday  Day `json:"saturday"`
	Sunday    Day `json:"sunday"`
}

// Volume is the sets, reps and rest used for the main lifts at a level
type Volume struct {
	Sets       int
	Reps, Rest string
}

func VolumeFor(level string) Volume {
	switch level {
	case LevelBeginner:
		return Volume{Sets: 3, Reps: "8-12", Rest: "1-2 minutes"}
	case LevelAdvanced:
		return Volume{Sets: 4, Reps: "6-10", Rest: "2-3 minutes"}
	}
	return Volume{Sets: 3, Reps: "8-10", Rest: "2 minutes"}
}

var (
	restDay = Day{
		Focus:     "Rest Day",
		Exercises: []Exercise{{Name: "Light stretching or yoga", Sets: 1, Reps: "20-30 minutes", Rest: "N/A"}},
	}
	recoveryDay = Day{
		Focus:     "Active Recovery",
		Exercises: []Exercise{{Name: "Light cardio or walking", Sets: 1, Reps: "30-45 minutes", Rest: "N/A"}},
	}
	plank = Exercise{Name: "Plank", Sets: 3, Reps: "45-60 seconds", Rest: "1 minute"}
)

// Plan builds the weekly schedule for a goal and fitness level
func Plan(goal, level string) WeeklyPlan {
	v := VolumeFor(level)
	pullUpReps := "6-8"
	deadliftReps := "6-8"
	if level == LevelBeginner {
		pullUpReps = "3-5"
		deadliftReps = "5-8"
	}
	lift := func(name string) Exercise { return Exercise{Name: name, Sets: v.Sets, Reps: v.Reps, Rest: v.Rest} }
	accessory := func(name, reps string) Exercise {
		return Exercise{Name: name, Sets: v.Sets - 1, Reps: reps, Rest: v.Rest}
	}

	switch goal {
	case GoalMuscleGain:
		return WeeklyPlan{
			Monday: Day{Focus: "Upper Body Strength", Exercises: []Exercise{
				lift("Bench Press"),
				accessory("Pull-ups", pullUpReps),
				accessory("Overhead Press", v.Reps),
			}},
			Tuesday: Day{Focus: "Lower Body Power", Exercises: []Exercise{
				lift("Squats"),
				{Name: "Deadlifts", Sets: v.Sets - 1, Reps: deadliftReps, Rest: "3 minutes"},
				accessory("Lunges", "12 each leg"),
			}},
			Wednesday: restDay,
			Thursday: Day{Focus: "Push Day", Exercises: []Exercise{
				lift("Incline Dumbbell Press"),
				accessory("Dips", v.Reps),
				{Name: "Tricep Extensions", Sets: v.Sets - 1, Reps: "10-12", Rest: "1-2 minutes"},
			}},
			Friday: Day{Focus: "Pull Day", Exercises: []Exercise{
				lift("Bent-over Rows"),
				accessory("Lat Pulldowns", v.Reps),
				{Name: "Bicep Curls", Sets: v.Sets - 1, Reps: "12-15", Rest: "1-2 minutes"},
			}},
			Saturday: Day{Focus: "Legs & Core", Exercises: []Exercise{
				accessory("Front Squats", v.Reps),
				accessory("Romanian Deadlifts", "10-12"),
				plank,
			}},
			Sunday: recoveryDay,
		}

	case GoalWeightLoss:
		return WeeklyPlan{
			Monday: Day{Focus: "Full Body HIIT", Exercises: []Exercise{
				{Name: "Burpees", Sets: 4, Reps: "10-15", Rest: "1 minute"},
				{Name: "Mountain Climbers", Sets: 3, Reps: "30 seconds", Rest: "30 seconds"},
				{Name: "Jump Squats", Sets: 3, Reps: "15-20", Rest: "1 minute"},
			}},
			Tuesday: Day{Focus: "Cardio & Core", Exercises: []Exercise{
				{Name: "Treadmill/Stationary Bike", Sets: 1, Reps: "20-30 minutes", Rest: "N/A"},
				plank,
				{Name: "Russian Twists", Sets: 3, Reps: "20 each side", Rest: "30 seconds"},
			}},
			Wednesday: restDay,
			Thursday: Day{Focus: "Strength Training", Exercises: []Exercise{
				{Name: "Goblet Squats", Sets: 3, Reps: "12-15", Rest: "1 minute"},
				{Name: "Dumbbell Rows", Sets: 3, Reps: "10-12", Rest: "1 minute"},
				{Name: "Push-ups", Sets: 3, Reps: "8-12", Rest: "1 minute"},
			}},
			Friday: Day{Focus: "HIIT Cardio", Exercises: []Exercise{
				{Name: "High Knees", Sets: 4, Reps: "30 seconds", Rest: "30 seconds"},
				{Name: "Jumping Jacks", Sets: 3, Reps: "45 seconds", Rest: "15 seconds"},
				{Name: "Burpees", Sets: 3, Reps: "8-12", Rest: "1 minute"},
			}},
			Saturday: Day{Focus: "Active Recovery", Exercises: []Exercise{
				{Name: "Walking or light jogging", Sets: 1, Reps: "30-45 minutes", Rest: "N/A"},
				{Name: "Yoga or stretching", Sets: 1, Reps: "20-30 minutes", Rest: "N/A"},
			}},
			Sunday: recoveryDay,
		}
	}

	return WeeklyPlan{
		Monday: Day{Focus: "Push Day", Exercises: []Exercise{
			lift("Push-ups"),
			accessory("Dips", v.Reps),
			accessory("Overhead Press", v.Reps),
		}},
		Tuesday: Day{Focus: "Pull Day", Exercises: []Exercise{
			{Name: "Pull-ups", Sets: v.Sets, Reps: pullUpReps, Rest: v.Rest},
			accessory("Bent-over Rows", v.Reps),
			accessory("Lat Pulldowns", v.Reps),
		}},
		Wednesday: restDay,
		Thursday: Day{Focus: "Legs & Core", Exercises: []Exercise{
			lift("Squats"),
			accessory("Lunges", "12 each leg"),
			plank,
		}},
		Friday: Day{Focus: "Upper Body", Exercises: []Exercise{
			lift("Bench Press"),
			accessory("Pull-ups", pullUpReps),
			accessory("Overhead Press", v.Reps),
		}},
		Saturday: Day{Focus: "Full Body", Exercises: []Exercise{
			lift("Deadlifts"),
			accessory("Squats", v.Reps),
			accessory("Push-ups", v.Reps),
		}},
		Sunday: recoveryDay,
	}
}
