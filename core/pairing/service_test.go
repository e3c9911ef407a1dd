package pairing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borisstroganov/accessible-health-dashboard/core/account"
	"github.com/borisstroganov/accessible-health-dashboard/core/pairing"
	emailsvc "github.com/borisstroganov/accessible-health-dashboard/services/email"
	inmemdb "github.com/borisstroganov/accessible-health-dashboard/storage/database/inmem"
	testutil "github.com/borisstroganov/accessible-health-dashboard/tests"
)

var (
	theo = account.Identity{Email: "theo@example.com", Name: "Theo", Role: account.RoleTherapist}
	tess = account.Identity{Email: "tess@example.com", Name: "Tess", Role: account.RoleTherapist}
)

type fixture struct {
	svc      *pairing.Service
	accounts account.Repository
}

func setup(t *testing.T) fixture {
	emailsvc.ClearSentMessages()
	db := inmemdb.Open()
	accounts := inmemdb.NewAccountRepository(db)
	testutil.CreatePatient(t, accounts, "Pat", "pat@example.com", "")
	testutil.CreatePatient(t, accounts, "Amy", "amy@example.com", "")
	testutil.CreateTherapist(t, accounts, theo.Name, theo.Email, "")
	testutil.CreateTherapist(t, accounts, tess.Name, tess.Email, "")

	conf := testutil.Config()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, testutil.NopLogger())
	return fixture{
		svc:      pairing.NewService(accounts, inmemdb.NewPairingRepository(db), mailSvc),
		accounts: accounts,
	}
}

func (f fixture) therapistOf(t *testing.T, patientEmail string) string {
	p, err := f.accounts.GetPatient(context.Background(), patientEmail)
	require.NoError(t, err)
	return p.TherapistEmail
}

func TestService_SendInvitation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		therapist account.Identity
		patient   string
		wantErr   error
	}{
		{name: "unknown patient", therapist: theo, patient: "nobody@example.com", wantErr: pairing.ErrPatientNotFound},
		{name: "ok", therapist: theo, patient: " pat@example.com "},
		{name: "already pending", therapist: theo, patient: "pat@example.com", wantErr: pairing.ErrInvitationAlreadyPending},
		{name: "other therapist", therapist: tess, patient: "pat@example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, f.svc.SendInvitation(ctx, tt.therapist, tt.patient))
		})
	}

	sent := emailsvc.SentMessages()
	if assert.Len(t, sent, 2) {
		assert.Equal(t, "pat@example.com", sent[0].To[0].Address)
		assert.Contains(t, sent[0].TextContent, "Theo (theo@example.com)")
	}

	invs, err := f.svc.PendingForPatient(ctx, "pat@example.com")
	require.NoError(t, err)
	require.Len(t, invs, 2)
	names := []string{invs[0].TherapistName, invs[1].TherapistName}
	assert.ElementsMatch(t, []string{"Theo", "Tess"}, names)

	invs, err = f.svc.PendingFromTherapist(ctx, theo.Email)
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, "Pat", invs[0].PatientName)
}

func TestService_AcceptInvitation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.svc.SendInvitation(ctx, theo, "pat@example.com"))
	require.NoError(t, f.svc.SendInvitation(ctx, tess, "pat@example.com"))

	tests := []struct {
		name      string
		therapist string
		wantErr   error
	}{
		{name: "unknown therapist", therapist: "nobody@example.com", wantErr: pairing.ErrTherapistNotFound},
		{name: "ok", therapist: theo.Email},
		{name: "consumed", therapist: theo.Email, wantErr: pairing.ErrNoPendingInvitation},
		{name: "already assigned", therapist: tess.Email, wantErr: pairing.ErrAlreadyAssigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, f.svc.AcceptInvitation(ctx, "pat@example.com", tt.therapist))
		})
	}
	assert.Equal(t, theo.Email, f.therapistOf(t, "pat@example.com"))

	// a paired patient cannot be invited again
	assert.Equal(t, pairing.ErrInvitationAlreadyPending, f.svc.SendInvitation(ctx, tess, "pat@example.com"))
	assert.Equal(t, pairing.ErrPatientAlreadyAssigned, f.svc.SendInvitation(ctx, theo, "pat@example.com"))

	m, err := f.svc.TherapistOf(ctx, "pat@example.com")
	require.NoError(t, err)
	assert.Equal(t, pairing.Member{Email: theo.Email, Name: theo.Name}, m)
}

func TestService_RejectInvitation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.svc.SendInvitation(ctx, theo, "pat@example.com"))

	assert.Equal(t, pairing.ErrTherapistNotFound, f.svc.RejectInvitation(ctx, "pat@example.com", "nobody@example.com"))
	assert.Equal(t, pairing.ErrNoPendingInvitation, f.svc.RejectInvitation(ctx, "pat@example.com", tess.Email))
	assert.NoError(t, f.svc.RejectInvitation(ctx, "pat@example.com", theo.Email))
	assert.Equal(t, pairing.ErrNoPendingInvitation, f.svc.RejectInvitation(ctx, "pat@example.com", theo.Email))

	assert.Equal(t, "", f.therapistOf(t, "pat@example.com"))
	invs, err := f.svc.PendingForPatient(ctx, "pat@example.com")
	require.NoError(t, err)
	assert.Empty(t, invs)

	// rejecting does not block a new invitation
	assert.NoError(t, f.svc.SendInvitation(ctx, theo, "pat@example.com"))
}

func TestService_SelfAssignAndUnassign(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.TherapistOf(ctx, "pat@example.com")
	assert.Equal(t, pairing.ErrNotAssigned, err)
	assert.Equal(t, pairing.ErrNotAssigned, f.svc.UnassignByPatient(ctx, "pat@example.com"))

	assert.Equal(t, pairing.ErrTherapistNotFound, f.svc.SelfAssignTherapist(ctx, "pat@example.com", "nobody@example.com"))
	require.NoError(t, f.svc.SelfAssignTherapist(ctx, "pat@example.com", theo.Email))
	require.NoError(t, f.svc.SelfAssignTherapist(ctx, "amy@example.com", theo.Email))
	assert.Equal(t, pairing.ErrAlreadyAssigned, f.svc.SelfAssignTherapist(ctx, "pat@example.com", tess.Email))

	members, err := f.svc.PatientsOf(ctx, theo.Email)
	require.NoError(t, err)
	assert.Equal(t, []pairing.Member{{Email: "amy@example.com", Name: "Amy"}, {Email: "pat@example.com", Name: "Pat"}}, members)

	assert.NoError(t, f.svc.EnsureTherapistOf(ctx, theo.Email, "pat@example.com"))
	assert.Equal(t, pairing.ErrNotYourPatient, f.svc.EnsureTherapistOf(ctx, tess.Email, "pat@example.com"))
	assert.Equal(t, pairing.ErrNotYourPatient, f.svc.EnsureTherapistOf(ctx, theo.Email, "nobody@example.com"))

	assert.Equal(t, pairing.ErrNotYourPatient, f.svc.UnassignByTherapist(ctx, tess.Email, "pat@example.com"))
	assert.NoError(t, f.svc.UnassignByTherapist(ctx, theo.Email, " pat@example.com "))
	assert.Equal(t, pairing.ErrNotYourPatient, f.svc.UnassignByTherapist(ctx, theo.Email, "pat@example.com"))

	assert.NoError(t, f.svc.UnassignByPatient(ctx, "amy@example.com"))
	assert.Equal(t, pairing.ErrNotAssigned, f.svc.UnassignByPatient(ctx, "amy@example.com"))

	members, err = f.svc.PatientsOf(ctx, theo.Email)
	require.NoError(t, err)
	assert.Empty(t, members)
}
