package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/borisstroganov/accessible-health-dashboard/core"
	"github.com/borisstroganov/accessible-health-dashboard/core/assignment"
	"github.com/borisstroganov/accessible-health-dashboard/core/capture"
)

type assignmentRepository struct {
	c           *mongo.Collection
	speechRates *mongo.Collection
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(s *Store) assignment.Repository {
	return &assignmentRepository{
		c:           s.db.Collection(assignmentsColl),
		speechRates: s.db.Collection(speechRatesColl),
	}
}

func fromStore(a *assignment.Assignment) {
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
}

func (repo *assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) error {
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	_, err := repo.c.InsertOne(ctx, a)
	return errors.Wrap(err, "inserting assignment")
}

func (repo *assignmentRepository) GetAssignment(ctx context.Context, id string) (assignment.Assignment, error) {
	var a assignment.Assignment
	if err := repo.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return assignment.Assignment{}, trapNoDocErr(err, assignment.ErrNotFound, "finding assignment")
	}
	fromStore(&a)
	return a, nil
}

func (repo *assignmentRepository) QueryAssignments(
	ctx context.Context,
	filter assignment.QueryFilter,
	ordering []core.DBOrdering,
) ([]assignment.Assignment, error) {
	query := bson.M{}
	if filter.PatientEmail != "" {
		query["patient_email"] = filter.PatientEmail
	}
	if filter.TherapistEmail != "" {
		query["therapist_email"] = filter.TherapistEmail
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	sort := make(bson.D, 0, len(ordering)+1)
	for _, ord := range ordering {
		if !assignment.OrderingFields[ord.Field] {
			continue
		}
		direction := -1
		if ord.Ascending {
			direction = 1
		}
		sort = append(sort, bson.E{Key: ord.Field, Value: direction})
	}
	if len(sort) == 0 {
		sort = append(sort, bson.E{Key: "created_at", Value: -1})
	}
	sort = append(sort, bson.E{Key: "_id", Value: 1})

	cur, err := repo.c.Find(ctx, query, options.Find().SetSort(sort))
	if err != nil {
		return nil, errors.Wrap(err, "finding assignments")
	}
	as := make([]assignment.Assignment, 0)
	if err = cur.All(ctx, &as); err != nil {
		return nil, errors.Wrap(err, "decoding assignments")
	}
	for i := range as {
		fromStore(&as[i])
	}
	return as, nil
}

// transition moves the assignment from one status to the next, setting extra fields.
func (repo *assignmentRepository) transition(ctx context.Context, id string, from, to assignment.Status, set bson.M) error {
	set["status"] = to
	res, err := repo.c.UpdateOne(ctx, bson.M{"_id": id, "status": from}, bson.M{"$set": set})
	if err != nil {
		return errors.Wrapf(err, "moving assignment to %s", to)
	}
	if res.MatchedCount == 0 {
		return assignment.ErrStatusConflict
	}
	return nil
}

// CompleteAssignment claims the todo assignment first, so a losing submission stores no capture.
// The claim is reverted when the capture cannot be stored.
func (repo *assignmentRepository) CompleteAssignment(ctx context.Context, id string, sr capture.SpeechRate) error {
	sr.RecordedAt = sr.RecordedAt.UTC()
	err := repo.transition(ctx, id, assignment.StatusTodo, assignment.StatusCompleted, bson.M{
		"speech_rate_id": sr.ID,
		"updated_at":     sr.RecordedAt,
	})
	if err != nil {
		return err
	}

	if _, err = repo.speechRates.InsertOne(ctx, sr); err != nil {
		_, rerr := repo.c.UpdateOne(ctx,
			bson.M{"_id": id, "status": assignment.StatusCompleted, "speech_rate_id": sr.ID},
			bson.M{"$set": bson.M{"status": assignment.StatusTodo}, "$unset": bson.M{"speech_rate_id": ""}},
		)
		if rerr != nil {
			return errors.Wrap(rerr, "reverting assignment")
		}
		return errors.Wrap(err, "inserting speech rate")
	}
	return nil
}

func (repo *assignmentRepository) ReviewAssignment(ctx context.Context, id, feedback string, at time.Time) error {
	return repo.transition(ctx, id, assignment.StatusCompleted, assignment.StatusReviewed, bson.M{
		"feedback":   feedback,
		"updated_at": at.UTC(),
	})
}

func (repo *assignmentRepository) DeleteAssignment(ctx context.Context, id, therapistEmail string) error {
	res, err := repo.c.DeleteOne(ctx, bson.M{"_id": id, "therapist_email": therapistEmail})
	if err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	if res.DeletedCount == 0 {
		return assignment.ErrNotFound
	}
	return nil
}
