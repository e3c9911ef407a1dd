package core

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailMessage_Render(t *testing.T) {
	conf := &Config{TestMode: true, AppName: "Speech Practice", FrontendBaseURL: "http://localhost:3000"}
	to := []mail.Address{{Name: "Pat", Address: "pat@example.com"}}

	tests := []struct {
		name     string
		msg      EmailMessage
		wantText []string
		wantHTML bool
		wantErr  bool
	}{
		{
			name:     "plain body",
			msg:      EmailMessage{To: to, BodyStr: "hello"},
			wantText: []string{"hello"},
		},
		{
			name: "invitation",
			msg: EmailMessage{To: to, TemplateName: "invitation_received", TemplateData: map[string]string{
				"PatientName": "Pat", "TherapistName": "Theo", "TherapistEmail": "theo@example.com",
			}},
			wantText: []string{"Hello Pat", "Theo (theo@example.com)", "The Speech Practice team"},
			wantHTML: true,
		},
		{
			name: "assignment created",
			msg: EmailMessage{To: to, TemplateName: "assignment_created", TemplateData: map[string]string{
				"PatientName": "Pat", "TherapistName": "Theo", "Title": "Rainbow", "ID": "a1",
			}},
			wantText: []string{"Rainbow"},
			wantHTML: true,
		},
		{
			name: "assignment submitted",
			msg: EmailMessage{To: to, TemplateName: "assignment_submitted", TemplateData: map[string]interface{}{
				"PatientName": "Pat", "TherapistName": "Theo", "Title": "Rainbow", "ID": "a1", "WPM": 120, "Accuracy": 95.5,
			}},
			wantText: []string{"120", "95.5"},
			wantHTML: true,
		},
		{
			name: "assignment reviewed",
			msg: EmailMessage{To: to, TemplateName: "assignment_reviewed", TemplateData: map[string]string{
				"PatientName": "Pat", "TherapistName": "Theo", "Title": "Rainbow", "Feedback": "Lovely pace",
			}},
			wantText: []string{"Lovely pace"},
			wantHTML: true,
		},
		{
			name: "missing key",
			msg: EmailMessage{To: to, TemplateName: "assignment_reviewed", TemplateData: map[string]string{
				"PatientName": "Pat",
			}},
			wantErr: true,
		},
		{
			name:    "unknown template",
			msg:     EmailMessage{To: to, TemplateName: "nope"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.msg
			err := msg.Render(conf)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, msg.HasContent())
			for _, s := range tt.wantText {
				assert.Contains(t, msg.TextContent, s)
			}
			assert.Equal(t, tt.wantHTML, msg.HTMLContent != "")
		})
	}
}
