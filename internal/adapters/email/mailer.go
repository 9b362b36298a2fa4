package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"eventflow/internal/domain"
)

const (
	providerSES  = "ses"
	providerNoop = "noop"

	sendTimeout = 10 * time.Second
	charset     = "UTF-8"
)

// SESConfig holds the AWS SES credentials used by the "ses" provider.
type SESConfig struct {
	Region             string
	AccessKeyID        string
	SecretAccessKey    string
	InsecureSkipVerify bool
}

// MailerConfig selects the delivery provider for review notifications.
type MailerConfig struct {
	Provider    string
	FromAddress string
	FromName    string
	SES         SESConfig
}

// NewMailer builds the mailer named by config.Provider. An empty or unknown
// provider falls back to a mailer that only logs.
func NewMailer(config MailerConfig) (domain.Mailer, error) {
	switch config.Provider {
	case providerSES:
		return newSESMailer(config)
	case providerNoop, "":
	default:
		slog.Warn("unknown email provider, notifications will only be logged", "provider", config.Provider)
	}
	return &noopMailer{}, nil
}

type sesMailer struct {
	client *ses.Client
	source string
}

func newSESMailer(config MailerConfig) (*sesMailer, error) {
	if config.FromAddress == "" {
		return nil, errors.New("ses mailer: from address is required")
	}
	if config.SES.Region == "" {
		return nil, errors.New("ses mailer: region is required")
	}
	if config.SES.InsecureSkipVerify {
		slog.Warn("TLS certificate verification is disabled for SES, use only in development")
	}

	from := mail.Address{Name: config.FromName, Address: config.FromAddress}
	client := ses.NewFromConfig(aws.Config{
		Region: config.SES.Region,
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			config.SES.AccessKeyID, config.SES.SecretAccessKey, "",
		)),
		HTTPClient: &http.Client{
			Timeout: sendTimeout,
			Transport: &http.Transport{TLSClientConfig: &tls.Config{
				InsecureSkipVerify: config.SES.InsecureSkipVerify,
				MinVersion:         tls.VersionTLS12,
			}},
		},
	})
	return &sesMailer{client: client, source: from.String()}, nil
}

func utf8Content(s string) *types.Content {
	if s == "" {
		return nil
	}
	return &types.Content{Data: aws.String(s), Charset: aws.String(charset)}
}

// sendEmailInput builds the SES request; empty bodies are omitted.
func (s *sesMailer) sendEmailInput(to, subject, html, text string) *ses.SendEmailInput {
	return &ses.SendEmailInput{
		Source:      aws.String(s.source),
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: utf8Content(subject),
			Body:    &types.Body{Html: utf8Content(html), Text: utf8Content(text)},
		},
	}
}

func (s *sesMailer) Send(to, subject, html, text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	out, err := s.client.SendEmail(ctx, s.sendEmailInput(to, subject, html, text))
	if err != nil {
		return fmt.Errorf("ses send to %s: %w", to, err)
	}
	slog.Debug("review notification sent", "message_id", aws.ToString(out.MessageId), "to", to)
	return nil
}

type noopMailer struct{}

func (noopMailer) Send(to, subject, _, _ string) error {
	slog.Info("review notification skipped, no email provider", "to", to, "subject", subject)
	return nil
}
