package echoapi

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borisstroganov/accessible-health-dashboard/core/account"
)

func Test_accountApi_signUp(t *testing.T) {
	env := setup(t)

	newAccount := func(name, email, password string) []byte {
		return marchallObj(t, account.NewAccount{Name: name, Email: email, Password: password, PasswordConfirm: password})
	}
	tests := []struct {
		name      string
		path      string
		body      []byte
		wantCode  int
		wantError string // field with an error
	}{
		{"patient", "/v1/patients", newAccount("Zoë O'Neil", " zoe@example.com ", "Sunfl0wer"), http.StatusCreated, ""},
		{"therapist", "/v1/therapists", newAccount("Dr. Ray", "ray@example.com", "Sunfl0wer"), http.StatusCreated, ""},
		{"same email, other role", "/v1/therapists", newAccount("Zoë O'Neil", "zoe@example.com", "Sunfl0wer"), http.StatusCreated, ""},
		{"duplicate patient", "/v1/patients", newAccount("Pat", env.patient.Email, "Sunfl0wer"), http.StatusBadRequest, "email"},
		{"duplicate therapist", "/v1/therapists", newAccount("Theo", env.therapist.Email, "Sunfl0wer"), http.StatusBadRequest, "email"},
		{"missing name", "/v1/patients", newAccount("", "new@example.com", "Sunfl0wer"), http.StatusBadRequest, "name"},
		{"invalid name", "/v1/patients", newAccount("R2-D2", "new@example.com", "Sunfl0wer"), http.StatusBadRequest, "name"},
		{"invalid email", "/v1/patients", newAccount("New", "new.example.com", "Sunfl0wer"), http.StatusBadRequest, "email"},
		{"weak password", "/v1/patients", newAccount("New", "new@example.com", "sunflower"), http.StatusBadRequest, "password"},
		{"password too long", "/v1/patients", newAccount("New", "new@example.com", "Sunfl0wer"+strings.Repeat("x", 71)), http.StatusBadRequest, "password"},
		{
			name:      "password mismatch",
			path:      "/v1/patients",
			body:      marchallObj(t, account.NewAccount{Name: "New", Email: "new@example.com", Password: "Sunfl0wer", PasswordConfirm: "Sunfl0wer1"}),
			wantCode:  http.StatusBadRequest,
			wantError: "password_confirm",
		},
		{"malformed body", "/v1/patients", []byte(`{"name": `), http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, tt.path, "", tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			var data map[string]interface{}
			decode(t, rec, &data)
			if tt.wantCode == http.StatusCreated {
				assert.Contains(t, data, "email")
				assert.Contains(t, data, "created_at")
				assert.NotContains(t, data, "password_hash")
			} else if tt.wantError != "" {
				assert.Contains(t, data, tt.wantError)
			}
		})
	}

	t.Run("stored", func(t *testing.T) {
		p, err := env.accounts.GetPatient(context.Background(), "zoe@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Zoë O'Neil", p.Name)
		assert.NoError(t, p.CheckPassword("Sunfl0wer"))
	})
}

func Test_accountApi_login(t *testing.T) {
	env := setup(t)

	login := func(email, password string, role account.Role) []byte {
		return marchallObj(t, LoginRequest{Email: email, Password: password, Role: role})
	}
	authFailed := marchallObj(t, httpErr{Error: account.ErrAuthenticationFailed.Error()})

	runHTTPTests(t, env, []httpTest{
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/v1/auth/login",
			body:     login(env.patient.Email, "Wr0ngPassword", ""),
			wantCode: http.StatusBadRequest,
			wantData: authFailed,
		},
		{
			name:     "wrong role",
			method:   http.MethodPost,
			path:     "/v1/auth/login",
			body:     login(env.patient.Email, pwd, account.RoleTherapist),
			wantCode: http.StatusBadRequest,
			wantData: authFailed,
		},
		{
			name:     "invalid role",
			method:   http.MethodPost,
			path:     "/v1/auth/login",
			body:     login(env.patient.Email, pwd, "admin"),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing password",
			method:   http.MethodPost,
			path:     "/v1/auth/login",
			body:     login(env.patient.Email, "", ""),
			wantCode: http.StatusBadRequest,
		},
	})

	tests := []struct {
		name string
		acc  account.Credentials
		role account.Role
	}{
		{"patient, any role", &env.patient, account.RoleAny},
		{"patient", &env.patient, account.RolePatient},
		{"therapist", &env.therapist, account.RoleTherapist},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := tt.acc.Identity()
			rec := env.do(http.MethodPost, "/v1/auth/login", "", login(id.Email, pwd, tt.role))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var resp LoginResponse
			decode(t, rec, &resp)
			assert.NotEmpty(t, resp.Token)
			assert.Equal(t, id, resp.Identity)

			// the token authenticates the account
			rec = env.do(http.MethodGet, "/v1/me", bearer(resp.Token))
			require.Equal(t, http.StatusOK, rec.Code)
			var me MeResponse
			decode(t, rec, &me)
			assert.Equal(t, id, me.Identity)
		})
	}
}

func Test_accountApi_me(t *testing.T) {
	env := setup(t)
	require.NoError(t, env.pairings.AssignTherapist(context.Background(), env.patient.Email, env.therapist.Email))

	runHTTPTests(t, env, []httpTest{
		{
			name:     "patient with therapist",
			method:   http.MethodGet,
			path:     "/v1/me",
			auth:     basicAuth(env.patient.Email, pwd),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, map[string]interface{}{
				"email":     env.patient.Email,
				"name":      env.patient.Name,
				"role":      "patient",
				"therapist": map[string]string{"email": env.therapist.Email, "name": env.therapist.Name},
			}),
		},
		{
			name:     "patient without therapist",
			method:   http.MethodGet,
			path:     "/v1/me",
			auth:     basicAuth(env.otherPat.Email, pwd),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, account.Identity{Email: env.otherPat.Email, Name: env.otherPat.Name, Role: account.RolePatient}),
		},
		{
			name:     "therapist",
			method:   http.MethodGet,
			path:     "/v1/me",
			auth:     basicAuth(env.therapist.Email, pwd),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, env.therapist.Identity()),
		},
		{
			name:     "anonymous",
			method:   http.MethodGet,
			path:     "/v1/me",
			wantCode: http.StatusUnauthorized,
		},
	})
}

func Test_accountApi_changePassword(t *testing.T) {
	env := setup(t)

	change := func(current, newPwd, confirm string) []byte {
		return marchallObj(t, account.ChangePassword{Password: current, NewPassword: newPwd, ConfirmPassword: confirm})
	}
	auth := basicAuth(env.therapist.Email, pwd)

	runHTTPTests(t, env, []httpTest{
		{
			name:     "wrong current password",
			method:   http.MethodPut,
			path:     "/v1/me/password",
			auth:     auth,
			body:     change("Wr0ngPassword", "N3wPassword", "N3wPassword"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: account.ErrWrongPassword.Error()}),
		},
		{
			name:     "same password",
			method:   http.MethodPut,
			path:     "/v1/me/password",
			auth:     auth,
			body:     change(pwd, pwd, pwd),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: account.ErrSamePassword.Error()}),
		},
		{
			name:     "confirmation mismatch",
			method:   http.MethodPut,
			path:     "/v1/me/password",
			auth:     auth,
			body:     change(pwd, "N3wPassword", "N3wPassw0rd"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: account.ErrPasswordMismatch.Error()}),
		},
		{
			name:     "policy",
			method:   http.MethodPut,
			path:     "/v1/me/password",
			auth:     auth,
			body:     change(pwd, "short", "short"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"new_password": "password must contain at least 8 characters"}),
		},
		{
			name:     "too long for bcrypt",
			method:   http.MethodPut,
			path:     "/v1/me/password",
			auth:     auth,
			body:     change(pwd, "N3wPassword"+strings.Repeat("x", 69), "N3wPassword"+strings.Repeat("x", 69)),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"new_password": "password must be at most 72 bytes long"}),
		},
		{
			name:     "missing fields",
			method:   http.MethodPut,
			path:     "/v1/me/password",
			auth:     auth,
			body:     change(pwd, "", ""),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "changed",
			method:   http.MethodPut,
			path:     "/v1/me/password",
			auth:     auth,
			body:     change(pwd, "N3wPassword", "N3wPassword"),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SuccessResponse{Success: "Password has been changed."}),
		},
	})

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/v1/me", auth).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/v1/me", basicAuth(env.therapist.Email, "N3wPassword")).Code)
}
