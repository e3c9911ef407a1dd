package assignment_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borisstroganov/accessible-health-dashboard/core"
	"github.com/borisstroganov/accessible-health-dashboard/core/account"
	"github.com/borisstroganov/accessible-health-dashboard/core/assignment"
	"github.com/borisstroganov/accessible-health-dashboard/core/capture"
	emailsvc "github.com/borisstroganov/accessible-health-dashboard/services/email"
	eventsvc "github.com/borisstroganov/accessible-health-dashboard/services/events"
	inmemdb "github.com/borisstroganov/accessible-health-dashboard/storage/database/inmem"
	testutil "github.com/borisstroganov/accessible-health-dashboard/tests"
)

var (
	theo = account.Identity{Email: "theo@example.com", Name: "Theo", Role: account.RoleTherapist}
	tess = account.Identity{Email: "tess@example.com", Name: "Tess", Role: account.RoleTherapist}
	pat  = account.Identity{Email: "pat@example.com", Name: "Pat", Role: account.RolePatient}
	amy  = account.Identity{Email: "amy@example.com", Name: "Amy", Role: account.RolePatient}

	base = time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)
)

func setup(t *testing.T) (*assignment.Service, *capture.Service) {
	emailsvc.ClearSentMessages()

	now := base
	t.Cleanup(assignment.SetNowFunc(func() time.Time {
		now = now.Add(time.Minute)
		return now
	}))

	db := inmemdb.Open()
	accounts := inmemdb.NewAccountRepository(db)
	pairings := inmemdb.NewPairingRepository(db)
	for _, p := range []account.Identity{pat, amy} {
		testutil.CreatePatient(t, accounts, p.Name, p.Email, "")
	}
	for _, th := range []account.Identity{theo, tess} {
		testutil.CreateTherapist(t, accounts, th.Name, th.Email, "")
	}
	require.NoError(t, pairings.AssignTherapist(context.Background(), pat.Email, theo.Email))
	require.NoError(t, pairings.AssignTherapist(context.Background(), amy.Email, tess.Email))

	mailSvc := emailsvc.NewConsoleServiceMock(testutil.Config(), testutil.NopLogger())
	captures := capture.NewService(inmemdb.NewCaptureRepository(db), new(eventsvc.Mock))
	return assignment.NewService(accounts, inmemdb.NewAssignmentRepository(db), captures, mailSvc), captures
}

func newAssignment(patientEmail, title string) assignment.NewAssignment {
	return assignment.NewAssignment{
		PatientEmail: patientEmail,
		Title:        title,
		Text:         "Peter Piper picked a peck of pickled peppers.",
	}
}

func TestService_Create(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		therapist account.Identity
		data      assignment.NewAssignment
		wantErr   error
	}{
		{name: "unknown patient", therapist: theo, data: newAssignment("nobody@example.com", "x"), wantErr: assignment.ErrPatientNotFound},
		{name: "not my patient", therapist: theo, data: newAssignment(amy.Email, "x"), wantErr: assignment.ErrNotYourPatient},
		{name: "ok", therapist: theo, data: newAssignment(pat.Email, "Tongue <b>twister</b>")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := svc.Create(ctx, tt.therapist, tt.data)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, a.ID)
			assert.Equal(t, assignment.StatusTodo, a.Status)
			assert.Equal(t, "Tongue twister", a.Title)
			assert.Equal(t, pat.Email, a.PatientEmail)
			assert.Equal(t, theo.Email, a.TherapistEmail)
			assert.Equal(t, a.CreatedAt, a.UpdatedAt)
		})
	}

	sent := emailsvc.SentMessages()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, pat.Email, sent[0].To[0].Address)
	}
}

func TestService_Lifecycle(t *testing.T) {
	svc, captures := setup(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, theo, newAssignment(pat.Email, "Rainbow passage"))
	require.NoError(t, err)

	// reviewing before submission
	_, err = svc.Review(ctx, a.ID, theo.Email, assignment.Review{Feedback: "Great"})
	assert.Equal(t, assignment.ErrNotYetCompleted, err)

	// submit
	_, err = svc.Submit(ctx, "nope", pat.Email, assignment.Submission{WPM: 120, Accuracy: 95})
	assert.Equal(t, assignment.ErrAssignmentNotFound, err)
	_, err = svc.Submit(ctx, a.ID, amy.Email, assignment.Submission{WPM: 120, Accuracy: 95})
	assert.Equal(t, assignment.ErrNotYourAssignment, err)

	res, err := svc.Submit(ctx, a.ID, pat.Email, assignment.Submission{WPM: 120, Accuracy: 95})
	require.NoError(t, err)
	assert.Equal(t, assignment.StatusCompleted, res.Status)
	assert.False(t, res.CapturedAt.IsZero())

	latest, err := captures.LatestSpeechRate(ctx, pat.Email)
	require.NoError(t, err)
	assert.Equal(t, 120, latest.WPM)
	assert.Equal(t, res.CapturedAt, latest.RecordedAt)

	_, err = svc.Submit(ctx, a.ID, pat.Email, assignment.Submission{WPM: 130, Accuracy: 99})
	assert.Equal(t, assignment.ErrAlreadySubmitted, err)
	srs, err := captures.RecentSpeechRates(ctx, pat.Email)
	require.NoError(t, err)
	assert.Len(t, srs, 1) // rejected submissions record nothing

	// review
	_, err = svc.Review(ctx, a.ID, tess.Email, assignment.Review{Feedback: "Great"})
	assert.Equal(t, assignment.ErrNotYourAssignment, err)
	rres, err := svc.Review(ctx, a.ID, theo.Email, assignment.Review{Feedback: "Great <i>pace</i>"})
	require.NoError(t, err)
	assert.Equal(t, assignment.ReviewResult{Status: assignment.StatusReviewed}, rres)
	_, err = svc.Review(ctx, a.ID, theo.Email, assignment.Review{Feedback: "Again"})
	assert.Equal(t, assignment.ErrAlreadyReviewed, err)
	_, err = svc.Submit(ctx, a.ID, pat.Email, assignment.Submission{WPM: 130, Accuracy: 99})
	assert.Equal(t, assignment.ErrAlreadySubmitted, err)

	// both sides see the detail with its capture
	for _, caller := range []account.Identity{pat, theo} {
		got, err := svc.Get(ctx, a.ID, caller)
		require.NoError(t, err)
		assert.Equal(t, assignment.StatusReviewed, got.Status)
		assert.Equal(t, "Great pace", got.Feedback)
		if assert.NotNil(t, got.SpeechRate) {
			assert.Equal(t, 120, got.SpeechRate.WPM)
		}
	}
	for _, caller := range []account.Identity{amy, tess} {
		_, err = svc.Get(ctx, a.ID, caller)
		assert.Equal(t, assignment.ErrNotYourAssignment, err)
	}

	// created, submitted & reviewed notifications
	assert.Len(t, emailsvc.SentMessages(), 3)
}

func TestService_PlainText(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, theo, assignment.NewAssignment{
		PatientEmail: pat.Email,
		Title:        "Don't rush & breathe",
		Text:         `Say "hello" 3 < 5 times, <b>slowly</b>`,
	})
	require.NoError(t, err)
	assert.Equal(t, "Don't rush & breathe", a.Title)
	assert.Equal(t, `Say "hello" 3 < 5 times, slowly`, a.Text)

	got, err := svc.Get(ctx, a.ID, pat)
	require.NoError(t, err)
	assert.Equal(t, a.Title, got.Title)
	assert.Equal(t, a.Text, got.Text)

	sent := emailsvc.SentMessages()
	if assert.Len(t, sent, 1) {
		assert.Contains(t, sent[0].TextContent, "Don't rush & breathe")
		assert.Contains(t, sent[0].HTMLContent, "Don&#39;t rush &amp; breathe")
		assert.NotContains(t, sent[0].HTMLContent, "&amp;#39;")
	}

	_, err = svc.Submit(ctx, a.ID, pat.Email, assignment.Submission{WPM: 100, Accuracy: 90})
	require.NoError(t, err)
	_, err = svc.Review(ctx, a.ID, theo.Email, assignment.Review{Feedback: `Don't stop & keep "going"`})
	require.NoError(t, err)
	got, err = svc.Get(ctx, a.ID, theo)
	require.NoError(t, err)
	assert.Equal(t, `Don't stop & keep "going"`, got.Feedback)
}

func TestService_TextLimits(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		title     string
		wantTitle string
		wantField string
	}{
		{name: "entities keep their length", title: strings.Repeat("&", assignment.MaxTitleLen), wantTitle: strings.Repeat("&", assignment.MaxTitleLen)},
		{name: "markup only", title: "<b></b>", wantField: "title"},
		{name: "too long", title: strings.Repeat("a", assignment.MaxTitleLen+1), wantField: "title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := svc.Create(ctx, theo, newAssignment(pat.Email, tt.title))
			if tt.wantField != "" {
				var verr *core.ValidationError
				require.True(t, errors.As(err, &verr))
				require.Len(t, verr.Fields, 1)
				assert.Equal(t, tt.wantField, verr.Fields[0].Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, a.Title)
		})
	}
}

func TestService_ConcurrentSubmit(t *testing.T) {
	svc, captures := setup(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, theo, newAssignment(pat.Email, "Rainbow passage"))
	require.NoError(t, err)

	const n = 10
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(wpm int) {
			defer wg.Done()
			_, err := svc.Submit(ctx, a.ID, pat.Email, assignment.Submission{WPM: wpm, Accuracy: 90})
			errs <- err
		}(100 + i)
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.Equal(t, assignment.ErrAlreadySubmitted, err)
	}
	assert.Equal(t, 1, ok)

	srs, err := captures.RecentSpeechRates(ctx, pat.Email)
	require.NoError(t, err)
	require.Len(t, srs, 1)
	got, err := svc.Get(ctx, a.ID, pat)
	require.NoError(t, err)
	assert.Equal(t, srs[0].ID, got.SpeechRateID)
}

func TestService_Delete(t *testing.T) {
	svc, captures := setup(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, theo, newAssignment(pat.Email, "Rainbow passage"))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, a.ID, pat.Email, assignment.Submission{WPM: 120, Accuracy: 95})
	require.NoError(t, err)

	assert.Equal(t, assignment.ErrNotYourAssignment, svc.Delete(ctx, a.ID, tess.Email))
	assert.NoError(t, svc.Delete(ctx, a.ID, theo.Email))
	assert.Equal(t, assignment.ErrAssignmentNotFound, svc.Delete(ctx, a.ID, theo.Email))
	_, err = svc.Get(ctx, a.ID, pat)
	assert.Equal(t, assignment.ErrAssignmentNotFound, err)

	// the capture is kept
	_, err = captures.LatestSpeechRate(ctx, pat.Email)
	assert.NoError(t, err)
}

func TestService_Query(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	a1, err := svc.Create(ctx, theo, newAssignment(pat.Email, "Bravo"))
	require.NoError(t, err)
	a2, err := svc.Create(ctx, theo, newAssignment(pat.Email, "Alpha"))
	require.NoError(t, err)
	a3, err := svc.Create(ctx, tess, newAssignment(amy.Email, "Charlie"))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, a1.ID, pat.Email, assignment.Submission{WPM: 100, Accuracy: 80})
	require.NoError(t, err)

	ids := func(as []assignment.Assignment) []string {
		res := make([]string, 0, len(as))
		for _, a := range as {
			res = append(res, a.ID)
		}
		return res
	}

	tests := []struct {
		name    string
		query   func() ([]assignment.Assignment, error)
		wantIDs []string
		wantErr error
	}{
		{
			name:    "patient, newest first",
			query:   func() ([]assignment.Assignment, error) { return svc.ForPatient(ctx, pat.Email, assignment.QueryFilter{}, nil) },
			wantIDs: []string{a2.ID, a1.ID},
		},
		{
			name: "patient cannot widen the filter",
			query: func() ([]assignment.Assignment, error) {
				return svc.ForPatient(ctx, pat.Email, assignment.QueryFilter{PatientEmail: amy.Email, TherapistEmail: tess.Email}, nil)
			},
			wantIDs: []string{a2.ID, a1.ID},
		},
		{
			name: "therapist by status",
			query: func() ([]assignment.Assignment, error) {
				return svc.ForTherapist(ctx, theo.Email, assignment.QueryFilter{Status: " COMPLETED "}, nil)
			},
			wantIDs: []string{a1.ID},
		},
		{
			name: "therapist by patient, ordered by title",
			query: func() ([]assignment.Assignment, error) {
				return svc.ForTherapist(ctx, theo.Email, assignment.QueryFilter{PatientEmail: pat.Email},
					[]core.DBOrdering{{Field: "title", Ascending: true}, {Field: "password_hash"}})
			},
			wantIDs: []string{a2.ID, a1.ID},
		},
		{
			name: "other therapist",
			query: func() ([]assignment.Assignment, error) {
				return svc.ForTherapist(ctx, tess.Email, assignment.QueryFilter{}, nil)
			},
			wantIDs: []string{a3.ID},
		},
		{
			name: "invalid status",
			query: func() ([]assignment.Assignment, error) {
				return svc.ForTherapist(ctx, theo.Email, assignment.QueryFilter{Status: "done"}, nil)
			},
			wantErr: assignment.ErrInvalidStatus,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			as, err := tt.query()
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, ids(as))
		})
	}
}
