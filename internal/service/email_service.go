package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"
)

// sesClient is the part of the SES v2 client the email service uses
type sesClient interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client        sesClient
	fromEmail     string
	fromName      string
	tokenLifespan time.Duration
	enabled       bool
	debug         bool
}

// NewEmailService creates a new email service
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName string, tokenLifespan time.Duration, debug bool) (*EmailService, error) {
	// If fromEmail is empty, create a disabled service
	if fromEmail == "" {
		log.Println("Email service disabled: SES_FROM_EMAIL not configured")
		if debug {
			log.Println("[DEBUG] Email service will skip sending all emails")
		}
		return &EmailService{
			tokenLifespan: tokenLifespan,
			enabled:       false,
			debug:         debug,
		}, nil
	}

	if debug {
		log.Printf("[DEBUG] Initializing email service with AWS SES")
		log.Printf("[DEBUG] AWS Region: %s", awsRegion)
		log.Printf("[DEBUG] From: %s <%s>", fromName, fromEmail)
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		if debug {
			log.Printf("[DEBUG] Failed to load AWS config: %v", err)
		}
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("Email service enabled: from=%s, region=%s", fromEmail, awsRegion)

	return newEmailServiceWithClient(sesv2.NewFromConfig(cfg), fromEmail, fromName, tokenLifespan, debug), nil
}

func newEmailServiceWithClient(client sesClient, fromEmail, fromName string, tokenLifespan time.Duration, debug bool) *EmailService {
	return &EmailService{
		client:        client,
		fromEmail:     fromEmail,
		fromName:      fromName,
		tokenLifespan: tokenLifespan,
		enabled:       true,
		debug:         debug,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendInviteEmail sends the set-password link to a newly invited client
func (s *EmailService) SendInviteEmail(ctx context.Context, toEmail, callbackURL string) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): invite to %s", toEmail)
		return nil
	}

	subject := "Set up your client portal account"
	htmlBody := renderEmail(
		"Welcome to the Client Portal",
		"<p>An account has been created for you on our secure client portal.</p>"+
			"<p>Click the button below to choose your password and sign in.</p>",
		"Set Password", callbackURL, s.lifespanText())
	textBody := fmt.Sprintf(`An account has been created for you on our secure client portal.

Choose your password here:
%s

This link will expire in %s.
`, callbackURL, s.lifespanText())

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// SendPasswordResetEmail sends a password reset link
func (s *EmailService) SendPasswordResetEmail(ctx context.Context, toEmail, callbackURL string) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): password reset to %s", toEmail)
		return nil
	}

	subject := "Reset your client portal password"
	htmlBody := renderEmail(
		"Password Reset Request",
		"<p>We received a request to reset the password for your client portal account.</p>"+
			"<p>If you didn't request a password reset, you can safely ignore this email.</p>",
		"Reset Password", callbackURL, s.lifespanText())
	textBody := fmt.Sprintf(`We received a request to reset the password for your client portal account.

Reset your password here:
%s

This link will expire in %s.

If you didn't request a password reset, you can safely ignore this email.
`, callbackURL, s.lifespanText())

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// SendGenericEmail sends a free-form HTML email, such as document reminders
func (s *EmailService) SendGenericEmail(ctx context.Context, toEmail, subject, htmlBody string) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): %q to %s", subject, toEmail)
		return nil
	}
	return s.sendEmail(ctx, toEmail, subject, htmlBody, "")
}

func (s *EmailService) lifespanText() string {
	hours := int(s.tokenLifespan.Hours())
	if hours == 1 {
		return "1 hour"
	}
	if hours > 0 {
		return fmt.Sprintf("%d hours", hours)
	}
	return s.tokenLifespan.String()
}

// sendEmail sends an email using Amazon SES. Rejections reported by the SES
// API are wrapped with ErrTransient; anything else (network, credentials,
// cancellation) is returned as is.
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	if s.debug {
		log.Printf("[DEBUG] sendEmail: from=%s, to=%s, subject=%s, html=%d bytes", fromAddress, toEmail, subject, len(htmlBody))
	}

	body := &types.Body{
		Html: &types.Content{
			Data:    aws.String(htmlBody),
			Charset: aws.String("UTF-8"),
		},
	}
	if textBody != "" {
		body.Text = &types.Content{
			Data:    aws.String(textBody),
			Charset: aws.String("UTF-8"),
		}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: body,
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		if s.debug {
			log.Printf("[DEBUG] SES SendEmail failed: %v", err)
		}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("%w: SES rejected email to %s: %s", ErrTransient, toEmail, apiErr.ErrorCode())
		}
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	if s.debug && result.MessageId != nil {
		log.Printf("[DEBUG] Message ID: %s", *result.MessageId)
	}

	log.Printf("Email sent successfully: to=%s, subject=%s", toEmail, subject)
	return nil
}

func renderEmail(heading, intro, buttonText, link, lifespan string) string {
	link = html.EscapeString(link)
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #1f3a5f; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #1f3a5f; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>%s</h1>
		</div>
		<div class="content">
			%s
			<p style="text-align: center;">
				<a href="%s" class="button">%s</a>
			</p>
			<p>Or copy and paste this link into your browser:</p>
			<p style="word-break: break-all; font-size: 12px; color: #666;">%s</p>
			<p><strong>This link will expire in %s.</strong></p>
		</div>
		<div class="footer">
			<p>This is an automated email from the client portal. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, heading, intro, link, buttonText, link, lifespan)
}
