package domain

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// EventReviewedEmailData holds data for the organizer's approve/reject notice.
type EventReviewedEmailData struct {
	Email           string
	EventTitle      string
	Status          EventStatus
	RejectionReason string
}

// ReportReviewEmailData holds data for the report author's reject / revision notice.
type ReportReviewEmailData struct {
	Email      string
	EventTitle string
	ReportID   string
	Reason     string
}
