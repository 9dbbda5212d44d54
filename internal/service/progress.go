package service

import (
	"math"

	"github.com/noah-isme/training-api/internal/dto"
	"github.com/noah-isme/training-api/internal/models"
)

// progressBuckets lists distribution buckets in ascending order.
var progressBuckets = []int{0, 25, 50, 75, 100}

// CompletionPercentage returns completed/total as a percentage rounded to two
// decimals, or 0 when nothing is assigned.
func CompletionPercentage(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*100*100) / 100
}

// RoundedPercentage returns completed/total as a whole percentage.
func RoundedPercentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// ProgressBucket maps a whole percentage to its distribution bucket. Only an
// exact 100 reaches the top bucket.
func ProgressBucket(pct int) int {
	switch {
	case pct == 100:
		return 100
	case pct >= 75:
		return 75
	case pct >= 50:
		return 50
	case pct >= 25:
		return 25
	default:
		return 0
	}
}

// NewProgressDistribution returns a distribution with every bucket at zero.
func NewProgressDistribution() dto.ProgressDistribution {
	dist := make(dto.ProgressDistribution, len(progressBuckets))
	for _, b := range progressBuckets {
		dist[b] = 0
	}
	return dist
}

// SummarizeStatuses classifies assignments by completion state.
func SummarizeStatuses(assignments []models.Assignment) models.AssignmentStatusSummary {
	summary := models.AssignmentStatusSummary{Total: len(assignments)}
	for _, a := range assignments {
		switch {
		case a.IsCompleted:
			summary.Completed++
		case a.CompletedAt != nil:
			summary.InProgress++
		default:
			summary.NotStarted++
		}
	}
	return summary
}

// SummarizeProgress builds the trainee progress block.
func SummarizeProgress(assignments []models.Assignment) dto.ProgressSummary {
	completed := 0
	for _, a := range assignments {
		if a.IsCompleted {
			completed++
		}
	}
	total := len(assignments)
	return dto.ProgressSummary{
		TotalAssigned:        total,
		Completed:            completed,
		Pending:              total - completed,
		CompletionPercentage: CompletionPercentage(completed, total),
	}
}

type completionTally struct {
	assigned  int
	completed int
}

func tallyBy(assignments []models.Assignment, key func(models.Assignment) string) map[string]completionTally {
	tallies := make(map[string]completionTally)
	for _, a := range assignments {
		k := key(a)
		t := tallies[k]
		t.assigned++
		if a.IsCompleted {
			t.completed++
		}
		tallies[k] = t
	}
	return tallies
}

// BuildModuleStats returns one line per module, preserving module order, and
// the number of modules with and without assignments.
func BuildModuleStats(modules []models.TrainingModule, assignments []models.Assignment) (stats []dto.ModuleStat, assigned, unassigned int) {
	tallies := tallyBy(assignments, func(a models.Assignment) string { return a.ModuleID })
	stats = make([]dto.ModuleStat, 0, len(modules))
	for _, m := range modules {
		t := tallies[m.ID]
		if t.assigned > 0 {
			assigned++
		} else {
			unassigned++
		}
		stats = append(stats, dto.ModuleStat{
			ID:             m.ID,
			Title:          m.Title,
			AssignedCount:  t.assigned,
			CompletedCount: t.completed,
			CompletionRate: CompletionPercentage(t.completed, t.assigned),
		})
	}
	return stats, assigned, unassigned
}

// BuildTraineeStats returns one line per trainee and the bucket distribution.
// Trainees with no assignments land in bucket 0.
func BuildTraineeStats(trainees []models.User, assignments []models.Assignment) ([]dto.TraineeStat, dto.ProgressDistribution) {
	tallies := tallyBy(assignments, func(a models.Assignment) string { return a.TraineeID })
	dist := NewProgressDistribution()
	stats := make([]dto.TraineeStat, 0, len(trainees))
	for _, trainee := range trainees {
		t := tallies[trainee.ID]
		pct := RoundedPercentage(t.completed, t.assigned)
		dist[ProgressBucket(pct)]++
		stats = append(stats, dto.TraineeStat{
			ID:                   trainee.ID,
			Username:             trainee.Username,
			CompletionPercentage: pct,
		})
	}
	return stats, dist
}

func assignmentsOf(details []models.AssignmentDetail) []models.Assignment {
	out := make([]models.Assignment, len(details))
	for i, d := range details {
		out[i] = d.Assignment
	}
	return out
}
