// Package repotest holds the behaviour every storage backend must share.
// Backends run it from their own tests with a factory returning empty repositories.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borisstroganov/accessible-health-dashboard/core"
	"github.com/borisstroganov/accessible-health-dashboard/core/account"
	"github.com/borisstroganov/accessible-health-dashboard/core/assignment"
	"github.com/borisstroganov/accessible-health-dashboard/core/capture"
	"github.com/borisstroganov/accessible-health-dashboard/core/pairing"
)

type Repos struct {
	Accounts    account.Repository
	Pairing     pairing.Repository
	Assignments assignment.Repository
	Captures    capture.Repository
}

// base is a whole second so every backend stores it without loss.
var base = time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)

// Run runs the whole suite. newRepos must return repositories over an empty store.
func Run(t *testing.T, newRepos func(t *testing.T) Repos) {
	t.Run("accounts", func(t *testing.T) { testAccounts(t, newRepos(t)) })
	t.Run("invitations", func(t *testing.T) { testInvitations(t, newRepos(t)) })
	t.Run("pairing", func(t *testing.T) { testPairing(t, newRepos(t)) })
	t.Run("assignments", func(t *testing.T) { testAssignments(t, newRepos(t)) })
	t.Run("captures", func(t *testing.T) { testCaptures(t, newRepos(t)) })
}

func createPatient(t *testing.T, repos Repos, name, email string) account.Patient {
	p, err := repos.Accounts.CreatePatient(context.Background(), account.Patient{
		Email:        email,
		Name:         name,
		PasswordHash: []byte("hash"),
		CreatedAt:    base,
	})
	require.NoError(t, err)
	return p
}

func createTherapist(t *testing.T, repos Repos, name, email string) account.Therapist {
	th, err := repos.Accounts.CreateTherapist(context.Background(), account.Therapist{
		Email:        email,
		Name:         name,
		PasswordHash: []byte("hash"),
		CreatedAt:    base,
	})
	require.NoError(t, err)
	return th
}

func testAccounts(t *testing.T, repos Repos) {
	ctx := context.Background()
	createPatient(t, repos, "Pat", "pat@example.com")
	createTherapist(t, repos, "Theo", "theo@example.com")

	_, err := repos.Accounts.CreatePatient(ctx, account.Patient{Email: "pat@example.com", Name: "Other", CreatedAt: base})
	assert.Equal(t, account.ErrEmailExists, errors.Cause(err))
	_, err = repos.Accounts.CreateTherapist(ctx, account.Therapist{Email: "theo@example.com", Name: "Other", CreatedAt: base})
	assert.Equal(t, account.ErrEmailExists, errors.Cause(err))

	// an email may exist in both tables
	_, err = repos.Accounts.CreateTherapist(ctx, account.Therapist{Email: "pat@example.com", Name: "Pat", CreatedAt: base})
	assert.NoError(t, err)

	p, err := repos.Accounts.GetPatient(ctx, "pat@example.com")
	if assert.NoError(t, err) {
		assert.Equal(t, "Pat", p.Name)
		assert.Equal(t, []byte("hash"), p.PasswordHash)
		assert.False(t, p.HasTherapist())
		assert.True(t, base.Equal(p.CreatedAt))
	}

	_, err = repos.Accounts.GetPatient(ctx, "theo@example.com")
	assert.Equal(t, account.ErrNotFound, errors.Cause(err))
	_, err = repos.Accounts.GetTherapist(ctx, "nobody@example.com")
	assert.Equal(t, account.ErrNotFound, errors.Cause(err))

	require.NoError(t, repos.Accounts.SetPassword(ctx, account.RoleTherapist, "theo@example.com", []byte("new")))
	th, err := repos.Accounts.GetTherapist(ctx, "theo@example.com")
	if assert.NoError(t, err) {
		assert.Equal(t, []byte("new"), th.PasswordHash)
	}
	err = repos.Accounts.SetPassword(ctx, account.RolePatient, "theo@example.com", []byte("new"))
	assert.Equal(t, account.ErrNotFound, errors.Cause(err))
}

func testInvitations(t *testing.T, repos Repos) {
	ctx := context.Background()
	createPatient(t, repos, "Pat", "pat@example.com")
	createTherapist(t, repos, "Theo", "theo@example.com")
	createTherapist(t, repos, "Tess", "tess@example.com")

	inv := func(therapist string, at time.Time) pairing.Invitation {
		return pairing.Invitation{PatientEmail: "pat@example.com", TherapistEmail: therapist, CreatedAt: at}
	}
	require.NoError(t, repos.Pairing.CreateInvitation(ctx, inv("theo@example.com", base)))
	require.NoError(t, repos.Pairing.CreateInvitation(ctx, inv("tess@example.com", base.Add(time.Minute))))

	err := repos.Pairing.CreateInvitation(ctx, inv("theo@example.com", base.Add(time.Hour)))
	assert.Equal(t, pairing.ErrInvitationExists, errors.Cause(err))

	exists, err := repos.Pairing.InvitationExists(ctx, "pat@example.com", "theo@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	invs, err := repos.Pairing.PatientInvitations(ctx, "pat@example.com")
	require.NoError(t, err)
	if assert.Len(t, invs, 2) {
		assert.Equal(t, "tess@example.com", invs[0].TherapistEmail) // newest first
		assert.Equal(t, "theo@example.com", invs[1].TherapistEmail)
	}

	invs, err = repos.Pairing.TherapistInvitations(ctx, "theo@example.com")
	require.NoError(t, err)
	if assert.Len(t, invs, 1) {
		assert.Equal(t, "pat@example.com", invs[0].PatientEmail)
		assert.True(t, base.Equal(invs[0].CreatedAt))
	}

	require.NoError(t, repos.Pairing.DeleteInvitation(ctx, "pat@example.com", "theo@example.com"))
	err = repos.Pairing.DeleteInvitation(ctx, "pat@example.com", "theo@example.com")
	assert.Equal(t, pairing.ErrNoInvitation, errors.Cause(err))

	exists, err = repos.Pairing.InvitationExists(ctx, "pat@example.com", "theo@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func testPairing(t *testing.T, repos Repos) {
	ctx := context.Background()
	createPatient(t, repos, "Zoe", "zoe@example.com")
	createPatient(t, repos, "Amy", "amy@example.com")
	createTherapist(t, repos, "Theo", "theo@example.com")
	createTherapist(t, repos, "Tess", "tess@example.com")

	therapistOf := func(email string) string {
		p, err := repos.Accounts.GetPatient(ctx, email)
		require.NoError(t, err)
		return p.TherapistEmail
	}

	// accept links the patient and consumes the invitation
	for _, th := range []string{"theo@example.com", "tess@example.com"} {
		require.NoError(t, repos.Pairing.CreateInvitation(ctx, pairing.Invitation{
			PatientEmail: "zoe@example.com", TherapistEmail: th, CreatedAt: base,
		}))
	}
	require.NoError(t, repos.Pairing.AcceptInvitation(ctx, "zoe@example.com", "theo@example.com"))
	assert.Equal(t, "theo@example.com", therapistOf("zoe@example.com"))
	exists, err := repos.Pairing.InvitationExists(ctx, "zoe@example.com", "theo@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	err = repos.Pairing.AcceptInvitation(ctx, "zoe@example.com", "theo@example.com")
	assert.Equal(t, pairing.ErrNoInvitation, errors.Cause(err))

	// a paired patient cannot accept another invitation, which stays pending
	err = repos.Pairing.AcceptInvitation(ctx, "zoe@example.com", "tess@example.com")
	assert.Equal(t, pairing.ErrAlreadyPaired, errors.Cause(err))
	exists, err = repos.Pairing.InvitationExists(ctx, "zoe@example.com", "tess@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "theo@example.com", therapistOf("zoe@example.com"))

	err = repos.Pairing.AssignTherapist(ctx, "zoe@example.com", "tess@example.com")
	assert.Equal(t, pairing.ErrAlreadyPaired, errors.Cause(err))
	require.NoError(t, repos.Pairing.AssignTherapist(ctx, "amy@example.com", "theo@example.com"))

	patients, err := repos.Pairing.TherapistPatients(ctx, "theo@example.com")
	require.NoError(t, err)
	if assert.Len(t, patients, 2) {
		assert.Equal(t, "Amy", patients[0].Name)
		assert.Equal(t, "Zoe", patients[1].Name)
	}

	err = repos.Pairing.UnassignTherapist(ctx, "zoe@example.com", "tess@example.com")
	assert.Equal(t, pairing.ErrNotPaired, errors.Cause(err))
	require.NoError(t, repos.Pairing.UnassignTherapist(ctx, "zoe@example.com", "theo@example.com"))
	assert.Equal(t, "", therapistOf("zoe@example.com"))
	err = repos.Pairing.UnassignTherapist(ctx, "zoe@example.com", "")
	assert.Equal(t, pairing.ErrNotPaired, errors.Cause(err))

	require.NoError(t, repos.Pairing.UnassignTherapist(ctx, "amy@example.com", ""))
	patients, err = repos.Pairing.TherapistPatients(ctx, "theo@example.com")
	require.NoError(t, err)
	assert.Empty(t, patients)
}

func testAssignments(t *testing.T, repos Repos) {
	ctx := context.Background()
	createPatient(t, repos, "Pat", "pat@example.com")
	createPatient(t, repos, "Amy", "amy@example.com")
	createTherapist(t, repos, "Theo", "theo@example.com")

	newAssignment := func(id, patient, title string, at time.Time) assignment.Assignment {
		a := assignment.Assignment{
			ID:             id,
			PatientEmail:   patient,
			TherapistEmail: "theo@example.com",
			Title:          title,
			Text:           "The rainbow is a division of white light.",
			Status:         assignment.StatusTodo,
			CreatedAt:      at,
			UpdatedAt:      at,
		}
		require.NoError(t, repos.Assignments.CreateAssignment(ctx, a))
		return a
	}
	a1 := newAssignment("a1", "pat@example.com", "Rainbow", base)
	newAssignment("a2", "pat@example.com", "Alphabet", base.Add(time.Hour))
	newAssignment("a3", "amy@example.com", "Counting", base.Add(2*time.Hour))

	got, err := repos.Assignments.GetAssignment(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, a1, got)
	_, err = repos.Assignments.GetAssignment(ctx, "nope")
	assert.Equal(t, assignment.ErrNotFound, errors.Cause(err))

	ids := func(as []assignment.Assignment) []string {
		res := make([]string, 0, len(as))
		for _, a := range as {
			res = append(res, a.ID)
		}
		return res
	}

	as, err := repos.Assignments.QueryAssignments(ctx, assignment.QueryFilter{TherapistEmail: "theo@example.com"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a3", "a2", "a1"}, ids(as))

	as, err = repos.Assignments.QueryAssignments(ctx,
		assignment.QueryFilter{PatientEmail: "pat@example.com"},
		[]core.DBOrdering{{Field: "title", Ascending: true}},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"a2", "a1"}, ids(as))

	// submit, then review
	sr := capture.SpeechRate{ID: "sr1", PatientEmail: "pat@example.com", WPM: 120, Accuracy: 93.5, RecordedAt: base.Add(3 * time.Hour)}
	require.NoError(t, repos.Assignments.CompleteAssignment(ctx, "a1", sr))
	late := capture.SpeechRate{ID: "sr2", PatientEmail: "pat@example.com", WPM: 90, Accuracy: 50, RecordedAt: base.Add(3 * time.Hour)}
	err = repos.Assignments.CompleteAssignment(ctx, "a1", late)
	assert.Equal(t, assignment.ErrStatusConflict, errors.Cause(err))

	// a rejected completion stores no capture
	srs, err := repos.Captures.ListSpeechRates(ctx, "pat@example.com", capture.RecentLimit)
	require.NoError(t, err)
	require.Len(t, srs, 1)
	assert.Equal(t, "sr1", srs[0].ID)

	err = repos.Assignments.ReviewAssignment(ctx, "a2", "Good", base)
	assert.Equal(t, assignment.ErrStatusConflict, errors.Cause(err))

	reviewedAt := base.Add(4 * time.Hour)
	require.NoError(t, repos.Assignments.ReviewAssignment(ctx, "a1", "Well done", reviewedAt))
	err = repos.Assignments.ReviewAssignment(ctx, "a1", "Again", reviewedAt)
	assert.Equal(t, assignment.ErrStatusConflict, errors.Cause(err))

	got, err = repos.Assignments.GetAssignment(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, assignment.StatusReviewed, got.Status)
	assert.Equal(t, "sr1", got.SpeechRateID)
	assert.Equal(t, "Well done", got.Feedback)
	assert.True(t, reviewedAt.Equal(got.UpdatedAt))

	as, err = repos.Assignments.QueryAssignments(ctx, assignment.QueryFilter{Status: assignment.StatusTodo}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a3", "a2"}, ids(as))

	// delete is scoped to the owning therapist
	err = repos.Assignments.DeleteAssignment(ctx, "a1", "tess@example.com")
	assert.Equal(t, assignment.ErrNotFound, errors.Cause(err))
	require.NoError(t, repos.Assignments.DeleteAssignment(ctx, "a1", "theo@example.com"))
	_, err = repos.Assignments.GetAssignment(ctx, "a1")
	assert.Equal(t, assignment.ErrNotFound, errors.Cause(err))

	// the capture outlives its assignment
	_, err = repos.Captures.GetSpeechRate(ctx, "sr1")
	assert.NoError(t, err)
}

func testCaptures(t *testing.T, repos Repos) {
	ctx := context.Background()
	createPatient(t, repos, "Pat", "pat@example.com")
	createPatient(t, repos, "Amy", "amy@example.com")

	for i := 0; i < 20; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repos.Captures.SaveHeartRate(ctx, capture.HeartRate{
			ID: "hr" + string(rune('a'+i)), PatientEmail: "pat@example.com", BPM: 60 + i, RecordedAt: at,
		}))
	}
	require.NoError(t, repos.Captures.SaveHeartRate(ctx, capture.HeartRate{
		ID: "other", PatientEmail: "amy@example.com", BPM: 200, RecordedAt: base.Add(time.Hour),
	}))

	hrs, err := repos.Captures.ListHeartRates(ctx, "pat@example.com", capture.RecentLimit)
	require.NoError(t, err)
	if assert.Len(t, hrs, capture.RecentLimit) {
		assert.Equal(t, 79, hrs[0].BPM)
		assert.Equal(t, 65, hrs[len(hrs)-1].BPM)
		assert.True(t, base.Add(19*time.Minute).Equal(hrs[0].RecordedAt))
	}

	require.NoError(t, repos.Captures.SaveBloodPressure(ctx, capture.BloodPressure{
		ID: "bp1", PatientEmail: "pat@example.com", Systolic: 120, Diastolic: 80, RecordedAt: base,
	}))
	require.NoError(t, repos.Captures.SaveBloodPressure(ctx, capture.BloodPressure{
		ID: "bp2", PatientEmail: "pat@example.com", Systolic: 130, Diastolic: 85, RecordedAt: base.Add(time.Second),
	}))
	bps, err := repos.Captures.ListBloodPressures(ctx, "pat@example.com", 1)
	require.NoError(t, err)
	if assert.Len(t, bps, 1) {
		assert.Equal(t, "bp2", bps[0].ID)
		assert.Equal(t, 85, bps[0].Diastolic)
	}

	srs, err := repos.Captures.ListSpeechRates(ctx, "amy@example.com", capture.RecentLimit)
	require.NoError(t, err)
	assert.Empty(t, srs)

	_, err = repos.Captures.GetSpeechRate(ctx, "nope")
	assert.Equal(t, capture.ErrNotFound, errors.Cause(err))
}
