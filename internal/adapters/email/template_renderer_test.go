package email

import (
	"testing"

	"eventflow/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateRenderer_EventReviewed(t *testing.T) {
	r := NewTemplateRenderer()

	t.Run("approved", func(t *testing.T) {
		subject, html, text, err := r.Render("event_reviewed", &domain.EventReviewedEmailData{
			EventTitle: "Go Meetup",
			Status:     domain.EventApproved,
		})
		require.NoError(t, err)
		assert.Equal(t, `Your event "Go Meetup" was approved`, subject)
		assert.Contains(t, html, "<strong>Go Meetup</strong> has been approved")
		assert.Contains(t, text, "open for registration")
	})

	t.Run("rejected with reason", func(t *testing.T) {
		subject, html, text, err := r.Render("event_reviewed", &domain.EventReviewedEmailData{
			EventTitle:      "Go Meetup",
			Status:          domain.EventRejected,
			RejectionReason: "venue <closed>",
		})
		require.NoError(t, err)
		assert.Equal(t, `Your event "Go Meetup" was rejected`, subject)
		assert.Contains(t, html, "venue &lt;closed&gt;")
		assert.Contains(t, text, "Reason: venue <closed>")
	})
}

func TestTemplateRenderer_ReportTemplates(t *testing.T) {
	r := NewTemplateRenderer()
	data := &domain.ReportReviewEmailData{EventTitle: "Go Meetup", ReportID: "rep-1", Reason: "attach photos"}

	for _, name := range []string{"report_rejected", "report_revision_requested"} {
		t.Run(name, func(t *testing.T) {
			subject, html, text, err := r.Render(name, data)
			require.NoError(t, err)
			assert.Contains(t, subject, "Go Meetup")
			assert.NotContains(t, subject, "\n")
			assert.Contains(t, html, "attach photos")
			assert.Contains(t, text, "rep-1")
		})
	}
}

func TestTemplateRenderer_UnknownTemplate(t *testing.T) {
	_, _, _, err := NewTemplateRenderer().Render("welcome", nil)
	require.Error(t, err)
}

func TestNewMailer_FallsBackToNoop(t *testing.T) {
	for _, provider := range []string{"", "noop", "smtp"} {
		m, err := NewMailer(MailerConfig{Provider: provider})
		require.NoError(t, err)
		assert.IsType(t, &noopMailer{}, m)
		assert.NoError(t, m.Send("a@example.com", "s", "<p>h</p>", "t"))
	}
}

func TestNewMailer_SESRequiresSenderAndRegion(t *testing.T) {
	_, err := NewMailer(MailerConfig{Provider: "ses", SES: SESConfig{Region: "eu-west-1"}})
	require.Error(t, err)

	_, err = NewMailer(MailerConfig{Provider: "ses", FromAddress: "events@example.com"})
	require.Error(t, err)
}

func TestSESMailer_SendEmailInput(t *testing.T) {
	m, err := newSESMailer(MailerConfig{
		Provider:    "ses",
		FromAddress: "events@example.com",
		FromName:    "Eventflow",
		SES:         SESConfig{Region: "eu-west-1"},
	})
	require.NoError(t, err)

	in := m.sendEmailInput("org@example.com", "subject", "", "plain body")
	assert.Equal(t, `"Eventflow" <events@example.com>`, *in.Source)
	assert.Equal(t, []string{"org@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, "subject", *in.Message.Subject.Data)
	assert.Nil(t, in.Message.Body.Html)
	require.NotNil(t, in.Message.Body.Text)
	assert.Equal(t, "plain body", *in.Message.Body.Text.Data)
	assert.Equal(t, "UTF-8", *in.Message.Body.Text.Charset)
}
