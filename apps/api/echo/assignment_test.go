package echoapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borisstroganov/accessible-health-dashboard/core/assignment"
	"github.com/borisstroganov/accessible-health-dashboard/core/capture"
)

func createAssignment(t *testing.T, env *testEnv, auth, patientEmail, title string) assignment.Assignment {
	t.Helper()
	body := marchallObj(t, assignment.NewAssignment{PatientEmail: patientEmail, Title: title, Text: "She sells seashells."})
	rec := env.do(http.MethodPost, "/v1/therapist/assignments", auth, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var a assignment.Assignment
	decode(t, rec, &a)
	return a
}

func Test_assignmentApi_create(t *testing.T) {
	env := setup(t)
	require.NoError(t, env.pairings.AssignTherapist(context.Background(), env.patient.Email, env.therapist.Email))

	theoAuth := basicAuth(env.therapist.Email, pwd)
	newAssignment := func(email, title, text string) []byte {
		return marchallObj(t, assignment.NewAssignment{PatientEmail: email, Title: title, Text: text})
	}

	runHTTPTests(t, env, []httpTest{
		{
			name:     "unknown patient",
			method:   http.MethodPost,
			path:     "/v1/therapist/assignments",
			auth:     theoAuth,
			body:     newAssignment("nobody@example.com", "Tongue twister", "Red lorry, yellow lorry."),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: assignment.ErrPatientNotFound.Error()}),
		},
		{
			name:     "not their patient",
			method:   http.MethodPost,
			path:     "/v1/therapist/assignments",
			auth:     theoAuth,
			body:     newAssignment(env.otherPat.Email, "Tongue twister", "Red lorry, yellow lorry."),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: assignment.ErrNotYourPatient.Error()}),
		},
		{
			name:     "missing title",
			method:   http.MethodPost,
			path:     "/v1/therapist/assignments",
			auth:     theoAuth,
			body:     newAssignment(env.patient.Email, " ", "Red lorry, yellow lorry."),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "patient cannot create",
			method:   http.MethodPost,
			path:     "/v1/therapist/assignments",
			auth:     basicAuth(env.patient.Email, pwd),
			body:     newAssignment(env.patient.Email, "Tongue twister", "Red lorry, yellow lorry."),
			wantCode: http.StatusForbidden,
		},
	})

	t.Run("created", func(t *testing.T) {
		body := newAssignment(env.patient.Email, "<b>Tongue twister</b>", "Red lorry, yellow lorry.")
		rec := env.do(http.MethodPost, "/v1/therapist/assignments", theoAuth, body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var a assignment.Assignment
		decode(t, rec, &a)
		assert.NotEmpty(t, a.ID)
		assert.Equal(t, "Tongue twister", a.Title)
		assert.Equal(t, assignment.StatusTodo, a.Status)
		assert.Equal(t, env.patient.Email, a.PatientEmail)
		assert.Equal(t, env.therapist.Email, a.TherapistEmail)
	})
}

func Test_assignmentApi_lifecycle(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	require.NoError(t, env.pairings.AssignTherapist(ctx, env.patient.Email, env.therapist.Email))
	require.NoError(t, env.pairings.AssignTherapist(ctx, env.otherPat.Email, env.otherTherap.Email))

	patAuth := basicAuth(env.patient.Email, pwd)
	amyAuth := basicAuth(env.otherPat.Email, pwd)
	theoAuth := basicAuth(env.therapist.Email, pwd)
	tessAuth := basicAuth(env.otherTherap.Email, pwd)

	a := createAssignment(t, env, theoAuth, env.patient.Email, "Tongue twister")
	pending := createAssignment(t, env, theoAuth, env.patient.Email, "Reading")
	path := "/v1/patient/assignments/" + a.ID
	tpath := "/v1/therapist/assignments/" + a.ID

	submission := marchallObj(t, capture.NewSpeechRate{WPM: 120, Accuracy: 92.5})
	review := marchallObj(t, assignment.Review{Feedback: "Great pacing!"})
	notFound := marchallObj(t, httpErr{Error: assignment.ErrAssignmentNotFound.Error()})
	notYours := marchallObj(t, httpErr{Error: assignment.ErrNotYourAssignment.Error()})

	runHTTPTests(t, env, []httpTest{
		{
			name:     "review todo",
			method:   http.MethodPost,
			path:     tpath + "/review",
			auth:     theoAuth,
			body:     review,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: assignment.ErrNotYetCompleted.Error()}),
		},
		{
			name:     "submit unknown",
			method:   http.MethodPost,
			path:     "/v1/patient/assignments/nope/submit",
			auth:     patAuth,
			body:     submission,
			wantCode: http.StatusBadRequest,
			wantData: notFound,
		},
		{
			name:     "submit other patient's",
			method:   http.MethodPost,
			path:     path + "/submit",
			auth:     amyAuth,
			body:     submission,
			wantCode: http.StatusBadRequest,
			wantData: notYours,
		},
		{
			name:     "submit out of range",
			method:   http.MethodPost,
			path:     path + "/submit",
			auth:     patAuth,
			body:     marchallObj(t, capture.NewSpeechRate{WPM: 120, Accuracy: 120}),
			wantCode: http.StatusBadRequest,
		},
	})

	t.Run("submit", func(t *testing.T) {
		rec := env.do(http.MethodPost, path+"/submit", patAuth, submission)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res assignment.SubmitResult
		decode(t, rec, &res)
		assert.Equal(t, assignment.StatusCompleted, res.Status)
		assert.False(t, res.CapturedAt.IsZero())

		// the submission is a speech capture
		rec = env.do(http.MethodGet, "/v1/patient/speech-rates/latest", patAuth)
		require.Equal(t, http.StatusOK, rec.Code)
		var sr capture.SpeechRate
		decode(t, rec, &sr)
		assert.Equal(t, 120, sr.WPM)
		assert.True(t, res.CapturedAt.Equal(sr.RecordedAt))
	})

	runHTTPTests(t, env, []httpTest{
		{
			name:     "submit again",
			method:   http.MethodPost,
			path:     path + "/submit",
			auth:     patAuth,
			body:     submission,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: assignment.ErrAlreadySubmitted.Error()}),
		},
		{
			name:     "review by other therapist",
			method:   http.MethodPost,
			path:     tpath + "/review",
			auth:     tessAuth,
			body:     review,
			wantCode: http.StatusBadRequest,
			wantData: notYours,
		},
		{
			name:     "review without feedback",
			method:   http.MethodPost,
			path:     tpath + "/review",
			auth:     theoAuth,
			body:     []byte(`{"feedback": ""}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "review",
			method:   http.MethodPost,
			path:     tpath + "/review",
			auth:     theoAuth,
			body:     review,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, assignment.ReviewResult{Status: assignment.StatusReviewed}),
		},
		{
			name:     "review again",
			method:   http.MethodPost,
			path:     tpath + "/review",
			auth:     theoAuth,
			body:     review,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: assignment.ErrAlreadyReviewed.Error()}),
		},
		{
			name:     "other patient cannot see it",
			method:   http.MethodGet,
			path:     path,
			auth:     amyAuth,
			wantCode: http.StatusBadRequest,
			wantData: notYours,
		},
		{
			name:     "filter by status",
			method:   http.MethodGet,
			path:     "/v1/patient/assignments?status=todo",
			auth:     patAuth,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []assignment.Assignment{pending}),
		},
		{
			name:     "invalid status",
			method:   http.MethodGet,
			path:     "/v1/therapist/assignments?status=done",
			auth:     theoAuth,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: assignment.ErrInvalidStatus.Error()}),
		},
		{
			name:     "other therapist's list",
			method:   http.MethodGet,
			path:     "/v1/therapist/assignments",
			auth:     tessAuth,
			wantCode: http.StatusOK,
			wantData: []byte("[]"),
		},
	})

	t.Run("detail", func(t *testing.T) {
		for _, auth := range []string{patAuth, theoAuth} {
			p := path
			if auth == theoAuth {
				p = tpath
			}
			rec := env.do(http.MethodGet, p, auth)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var got assignment.Assignment
			decode(t, rec, &got)
			assert.Equal(t, assignment.StatusReviewed, got.Status)
			assert.Equal(t, "Great pacing!", got.Feedback)
			require.NotNil(t, got.SpeechRate)
			assert.Equal(t, 120, got.SpeechRate.WPM)
		}
	})

	t.Run("therapist list ordering", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/therapist/assignments?patient="+env.patient.Email+"&ordering=title", theoAuth)
		require.Equal(t, http.StatusOK, rec.Code)
		var as []assignment.Assignment
		decode(t, rec, &as)
		require.Len(t, as, 2)
		assert.Equal(t, "Reading", as[0].Title)
		assert.Equal(t, "Tongue twister", as[1].Title)
	})

	runHTTPTests(t, env, []httpTest{
		{
			name:     "delete by other therapist",
			method:   http.MethodDelete,
			path:     tpath,
			auth:     tessAuth,
			wantCode: http.StatusBadRequest,
			wantData: notYours,
		},
		{
			name:     "delete",
			method:   http.MethodDelete,
			path:     tpath,
			auth:     theoAuth,
			wantCode: http.StatusNoContent,
		},
		{
			name:     "delete again",
			method:   http.MethodDelete,
			path:     tpath,
			auth:     theoAuth,
			wantCode: http.StatusBadRequest,
			wantData: notFound,
		},
		{
			name:     "gone",
			method:   http.MethodGet,
			path:     path,
			auth:     patAuth,
			wantCode: http.StatusBadRequest,
			wantData: notFound,
		},
	})

	t.Run("capture kept", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/v1/patient/speech-rates", patAuth)
		require.Equal(t, http.StatusOK, rec.Code)
		var srs []capture.SpeechRate
		decode(t, rec, &srs)
		assert.Len(t, srs, 1)
	})
}
