package fakeapi

import (
	"time"

	"safeshift/internal/api"
	"safeshift/internal/report"
)

const (
	// heartbeatInterval is how much active time one heartbeat stands for.
	heartbeatInterval = 5 * time.Minute
	// expectedWeeklyActivity is twelve entries a day over a five day week.
	expectedWeeklyActivity = 12 * 5
	wellnessWindow         = 7 * 24 * time.Hour
	stressWindow           = 30 * 24 * time.Hour
	// unscoredEmployee stands in for an employee with no calculated score.
	unscoredEmployee = 5
)

// Wellness factor keys, each a 0-100 sub-score.
const (
	FactorWorkLifeBalance = "work_life_balance"
	FactorActivityLevel   = "activity_level"
	FactorStressLevel     = "stress_level"
	FactorTaskPerformance = "task_performance"
)

// wellnessInputs is what an employee score is derived from.
type wellnessInputs struct {
	ActiveBeats   int // heartbeats over the last week
	ActivityCount int // all activity entries over the last week
	RecentReports int // reports filed under the employee's name in 30 days
	TasksTotal    int
	TasksDone     int
}

type factor struct {
	score   int
	penalty int
}

// scoreWellness starts from 10 and subtracts a penalty per factor, clamped
// to 1-10.
func scoreWellness(in wellnessInputs) (int, map[string]int) {
	factors := map[string]factor{
		FactorWorkLifeBalance: workBalance(in.ActiveBeats),
		FactorActivityLevel:   activityLevel(in.ActivityCount),
		FactorStressLevel:     stressLevel(in.RecentReports),
		FactorTaskPerformance: taskPerformance(in.TasksDone, in.TasksTotal),
	}
	score := 10
	out := make(map[string]int, len(factors))
	for k, f := range factors {
		score -= f.penalty
		out[k] = f.score
	}
	return min(10, max(1, score)), out
}

// workBalance flags overtime from the average active hours per day.
func workBalance(activeBeats int) factor {
	hoursPerDay := float64(activeBeats) * heartbeatInterval.Hours() / 7
	switch {
	case hoursPerDay > 10:
		return factor{score: 30, penalty: 3}
	case hoursPerDay > 8:
		return factor{score: 60, penalty: 1}
	default:
		return factor{score: 100}
	}
}

func activityLevel(entries int) factor {
	switch {
	case float64(entries) < expectedWeeklyActivity*0.5:
		return factor{score: 40, penalty: 2}
	case float64(entries) < expectedWeeklyActivity*0.8:
		return factor{score: 70, penalty: 1}
	default:
		return factor{score: 100}
	}
}

func stressLevel(reports int) factor {
	switch {
	case reports > 5:
		return factor{score: 30, penalty: 3}
	case reports > 2:
		return factor{score: 60, penalty: 1}
	default:
		return factor{score: 100}
	}
}

func taskPerformance(done, total int) factor {
	if total == 0 {
		return factor{score: 100}
	}
	rate := float64(done) / float64(total)
	switch {
	case rate < 0.3:
		return factor{score: 40, penalty: 2}
	case rate < 0.6:
		return factor{score: 70, penalty: 1}
	default:
		return factor{score: 100}
	}
}

func wellnessMessage(score int) string {
	switch {
	case score >= 8:
		return "You're doing great! Keep maintaining this healthy balance."
	case score >= 6:
		return "You're doing well! Consider taking more breaks."
	case score >= 4:
		return "Let's check in - everything okay? Consider reaching out if you need support."
	default:
		return "We're concerned about your wellbeing. Please speak with your manager or HR."
	}
}

// departmentScore averages the latest employee scores onto the 0-100 scale.
// A department with nobody in it reads as a neutral 50.
func departmentScore(latest []int) (score int, trend string) {
	if len(latest) == 0 {
		return 50, "stable"
	}
	total := 0
	for _, v := range latest {
		total += v
	}
	score = total * 10 / len(latest)
	switch {
	case score >= api.WellnessExcellentMin:
		return score, "improving"
	case score < api.WellnessFairMin:
		return score, "declining"
	default:
		return score, "stable"
	}
}

// wellnessInputsFor gathers an employee's inputs from the store.
func (s *Server) wellnessInputsFor(employeeID string, now time.Time) wellnessInputs {
	var in wellnessInputs
	for _, e := range s.store.Activity(employeeID, now.Add(-wellnessWindow)) {
		in.ActivityCount++
		if e.ActivityType == activityHeartbeat {
			in.ActiveBeats++
		}
	}
	since := now.Add(-stressWindow)
	in.RecentReports = len(s.store.Reports(func(r report.Report) bool {
		return r.ReporterID == employeeID && !r.CreatedAt.Before(since)
	}))
	for _, t := range s.store.Tasks(func(t api.Task) bool { return t.EmployeeID == employeeID }) {
		in.TasksTotal++
		if t.IsCompleted {
			in.TasksDone++
		}
	}
	return in
}

// calculateWellness scores an employee and stores the result.
func (s *Server) calculateWellness(employeeID string) api.WellnessScore {
	now := s.now()
	score, factors := scoreWellness(s.wellnessInputsFor(employeeID, now))
	return s.store.AddWellness(api.WellnessScore{
		EmployeeID:   employeeID,
		Score:        score,
		Factors:      factors,
		Notes:        wellnessMessage(score),
		CalculatedAt: now,
	})
}

func (s *Server) departmentWellness(dept api.Department) api.DepartmentWellness {
	employees := s.store.ListEmployees(dept.ID, "", true)
	latest := make([]int, 0, len(employees))
	for _, e := range employees {
		w, err := s.store.LatestWellness(e.ID)
		if err != nil {
			latest = append(latest, unscoredEmployee)
			continue
		}
		latest = append(latest, w.Score)
	}
	score, trend := departmentScore(latest)
	return api.DepartmentWellness{
		DepartmentID:   dept.ID,
		DepartmentName: dept.Name,
		WellnessScore:  score,
		TotalEmployees: len(employees),
		Trend:          trend,
	}
}
