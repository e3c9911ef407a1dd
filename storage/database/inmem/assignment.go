package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/borisstroganov/accessible-health-dashboard/core"
	"github.com/borisstroganov/accessible-health-dashboard/core/assignment"
	"github.com/borisstroganov/accessible-health-dashboard/core/capture"
)

type assignmentRepository struct {
	db *DB
}

var _ assignment.Repository = (*assignmentRepository)(nil)

func NewAssignmentRepository(db *DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) CreateAssignment(_ context.Context, a assignment.Assignment) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	a.SpeechRate = nil
	repo.db.assignments[a.ID] = &a
	return nil
}

func (repo *assignmentRepository) GetAssignment(_ context.Context, id string) (assignment.Assignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if a, ok := repo.db.assignments[id]; ok {
		return *a, nil
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}

func (repo *assignmentRepository) QueryAssignments(
	_ context.Context,
	filter assignment.QueryFilter,
	ordering []core.DBOrdering,
) ([]assignment.Assignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	as := make([]assignment.Assignment, 0)
	for _, a := range repo.db.assignments {
		if filter.PatientEmail != "" && a.PatientEmail != filter.PatientEmail {
			continue
		}
		if filter.TherapistEmail != "" && a.TherapistEmail != filter.TherapistEmail {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		as = append(as, *a)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	sort.SliceStable(as, func(i, j int) bool {
		for _, ord := range ordering {
			cmp := compareField(as[i], as[j], ord.Field)
			if cmp == 0 {
				continue
			}
			if ord.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return as[i].ID < as[j].ID
	})
	return as, nil
}

func compareField(a, b assignment.Assignment, field string) int {
	switch field {
	case "created_at":
		return compareTime(a.CreatedAt, b.CreatedAt)
	case "updated_at":
		return compareTime(a.UpdatedAt, b.UpdatedAt)
	case "title":
		return strings.Compare(a.Title, b.Title)
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	}
	return 0
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func (repo *assignmentRepository) CompleteAssignment(_ context.Context, id string, sr capture.SpeechRate) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	a, ok := repo.db.assignments[id]
	if !ok || a.Status != assignment.StatusTodo {
		return assignment.ErrStatusConflict
	}
	repo.db.speechRates = append(repo.db.speechRates, sr)
	a.Status = assignment.StatusCompleted
	a.SpeechRateID = sr.ID
	a.UpdatedAt = sr.RecordedAt
	return nil
}

func (repo *assignmentRepository) ReviewAssignment(_ context.Context, id, feedback string, at time.Time) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	a, ok := repo.db.assignments[id]
	if !ok || a.Status != assignment.StatusCompleted {
		return assignment.ErrStatusConflict
	}
	a.Status = assignment.StatusReviewed
	a.Feedback = feedback
	a.UpdatedAt = at
	return nil
}

func (repo *assignmentRepository) DeleteAssignment(_ context.Context, id, therapistEmail string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	a, ok := repo.db.assignments[id]
	if !ok || a.TherapistEmail != therapistEmail {
		return assignment.ErrNotFound
	}
	delete(repo.db.assignments, id)
	return nil
}
