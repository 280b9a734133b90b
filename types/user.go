package types

import "math"

const (
	// MaxCorrect is the number of correct answers that makes a test attempt
	// fully correct (a passed module).
	MaxCorrect = 5

	// CalibrationModuleID is the module used to recommend skippable modules.
	CalibrationModuleID = 0
	// VersionedModuleID is the module whose question set rotates between
	// pre-authored versions.
	VersionedModuleID = 1
)

const (
	LevelNovice       = "Новичок"
	LevelExperienced  = "Опытный"
	LevelProfessional = "Профессионал"
	LevelExpert       = "Эксперт"
)

// LevelFor derives the user level label from the lifetime number of fully
// correct test attempts.
func LevelFor(fullyCorrect int) string {
	switch {
	case fullyCorrect < 3:
		return LevelNovice
	case fullyCorrect < 7:
		return LevelExperienced
	case fullyCorrect < 10:
		return LevelProfessional
	case fullyCorrect == 10:
		return LevelExpert
	default:
		return LevelExperienced
	}
}

type User struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Role   string  `json:"role"`
	Mentor *string `json:"mentor"`
	Lvl    *string `json:"lvl"`
}

type TestAttempt struct {
	ID       int `json:"id"`
	UserID   int `json:"user_id"`
	ModuleID int `json:"module_id"`
	Corrects int `json:"corrects"`
}

type ModuleSuccess struct {
	ModuleID        int `json:"module_id"`
	SuccessfulUsers int `json:"successful_users"`
}

type GeneralStats struct {
	TotalUsers       int             `json:"total_users"`
	TotalTests       int             `json:"total_tests"`
	SuccessfulTests  int             `json:"successful_tests"`
	SuccessRate      float64         `json:"success_rate"`
	ModuleStatistics []ModuleSuccess `json:"module_statistics"`
}

type ModuleProgress struct {
	ModuleID      int `json:"module_id"`
	TotalAttempts int `json:"total_attempts"`
	WorstScore    int `json:"worst_score"`
	BestScore     int `json:"best_score"`
}

type UserStats struct {
	UserInfo          User             `json:"user_info"`
	TotalTests        int              `json:"total_tests"`
	AverageScore      float64          `json:"average_score"`
	MaxScore          int              `json:"max_score"`
	MinScore          int              `json:"min_score"`
	SuccessfulModules []int            `json:"successful_modules"`
	ModuleProgress    []ModuleProgress `json:"module_progress"`
}

type MentorStats struct {
	MentorName             string      `json:"mentor_name"`
	TotalUsers             int         `json:"total_users"`
	TotalSuccessfulModules int         `json:"total_successful_modules"`
	AverageSuccessRate     float64     `json:"average_success_rate"`
	Users                  []UserStats `json:"users"`
}

// SuccessfulModules lists the modules whose best score is a full pass, in
// progress order.
func SuccessfulModules(progress []ModuleProgress) []int {
	modules := []int{}
	for _, p := range progress {
		if p.BestScore == MaxCorrect {
			modules = append(modules, p.ModuleID)
		}
	}
	return modules
}

// SuccessRate is the share of successful tests in percent, rounded to two
// decimals; zero when there are no tests.
func SuccessRate(successful, total int) float64 {
	if total == 0 {
		return 0
	}
	return Round2(float64(successful) / float64(total) * 100)
}

// NewMentorStats rolls up per-mentee statistics. The average only counts
// mentees who have taken at least one test.
func NewMentorStats(name string, totalUsers int, users []UserStats) MentorStats {
	stats := MentorStats{
		MentorName: name,
		TotalUsers: totalUsers,
		Users:      users,
	}
	if stats.Users == nil {
		stats.Users = []UserStats{}
	}

	var sum float64
	var withTests int
	for _, u := range users {
		stats.TotalSuccessfulModules += len(u.SuccessfulModules)
		if u.TotalTests > 0 {
			sum += u.AverageScore
			withTests++
		}
	}
	if withTests > 0 {
		stats.AverageSuccessRate = Round2(sum / float64(withTests))
	}
	return stats
}

func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}
