package service

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// Mailer sends the account emails. AuthService only depends on this.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, toEmail, toName, token string, ttl time.Duration) error
	SendPasswordResetEmail(ctx context.Context, toEmail, toName, token string, ttl time.Duration) error
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client      *sesv2.Client
	fromEmail   string
	fromName    string
	frontendURL string
	enabled     bool
	debug       bool
}

// NewEmailService creates a new email service. Links in emails point at
// frontendURL, which serves the verify and reset pages.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, frontendURL string, debug bool) (*EmailService, error) {
	if fromEmail == "" {
		log.Println("Email service disabled: SES_FROM_EMAIL not configured")
		if debug {
			log.Println("[DEBUG] Email service will skip sending all emails")
		}
		return &EmailService{
			frontendURL: frontendURL,
			enabled:     false,
			debug:       debug,
		}, nil
	}

	if debug {
		log.Printf("[DEBUG] Initializing email service with AWS SES")
		log.Printf("[DEBUG] AWS Region: %s", awsRegion)
		log.Printf("[DEBUG] From: %s <%s>", fromName, fromEmail)
		log.Printf("[DEBUG] Frontend URL: %s", frontendURL)
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		if debug {
			log.Printf("[DEBUG] Failed to load AWS config: %v", err)
		}
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("Email service enabled: from=%s, region=%s", fromEmail, awsRegion)

	return &EmailService{
		client:      sesv2.NewFromConfig(cfg),
		fromEmail:   fromEmail,
		fromName:    fromName,
		frontendURL: frontendURL,
		enabled:     true,
		debug:       debug,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendVerificationEmail sends the link that confirms a new account's address
func (s *EmailService) SendVerificationEmail(ctx context.Context, toEmail, toName, token string, ttl time.Duration) error {
	link := s.link("/verify-email", token)
	msg := emailMessage{
		Subject: "Verify your Deep Focus Planner email",
		Heading: "Confirm your email",
		Name:    toName,
		Intro:   "Thanks for signing up for Deep Focus Planner. Please confirm your email address to finish setting up your account.",
		Action:  "Verify Email",
		Link:    link,
		Expiry:  ttl,
		Outro:   "If you didn't create an account, you can safely ignore this email.",
	}
	return s.send(ctx, "verification", toEmail, msg)
}

// SendPasswordResetEmail sends a password reset email with a reset link
func (s *EmailService) SendPasswordResetEmail(ctx context.Context, toEmail, toName, token string, ttl time.Duration) error {
	link := s.link("/reset-password", token)
	msg := emailMessage{
		Subject: "Reset your Deep Focus Planner password",
		Heading: "Password Reset Request",
		Name:    toName,
		Intro:   "We received a request to reset the password for your Deep Focus Planner account.",
		Action:  "Reset Password",
		Link:    link,
		Expiry:  ttl,
		Outro:   "If you didn't request a password reset, you can safely ignore this email.",
	}
	return s.send(ctx, "password reset", toEmail, msg)
}

func (s *EmailService) link(path, token string) string {
	return fmt.Sprintf("%s%s?token=%s", s.frontendURL, path, url.QueryEscape(token))
}

func (s *EmailService) send(ctx context.Context, kind, toEmail string, msg emailMessage) error {
	if s.debug {
		log.Printf("[DEBUG] Sending %s email: to=%s, link=%s", kind, toEmail, msg.Link)
	}
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): %s to %s", kind, toEmail)
		return nil
	}
	return s.sendEmail(ctx, toEmail, msg.Subject, msg.HTML(), msg.Text())
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
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
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		if s.debug {
			log.Printf("[DEBUG] SES SendEmail failed: %v", err)
		}
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	if s.debug && result.MessageId != nil {
		log.Printf("[DEBUG] Message ID: %s", *result.MessageId)
	}

	log.Printf("Email sent successfully: to=%s, subject=%s", toEmail, subject)
	return nil
}

// emailMessage is the single-call-to-action layout shared by account emails
type emailMessage struct {
	Subject string
	Heading string
	Name    string
	Intro   string
	Action  string
	Link    string
	Expiry  time.Duration
	Outro   string
}

func (m emailMessage) greeting() string {
	if m.Name == "" {
		return "Hi,"
	}
	return fmt.Sprintf("Hi %s,", m.Name)
}

func (m emailMessage) HTML() string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #3b3f8f; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #3b3f8f; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header"><h1>%s</h1></div>
		<div class="content">
			<p>%s</p>
			<p>%s</p>
			<p style="text-align: center;"><a href="%s" class="button">%s</a></p>
			<p>Or copy and paste this link into your browser:</p>
			<p style="word-break: break-all; font-size: 12px; color: #666;">%s</p>
			<p><strong>This link will expire in %s.</strong></p>
			<p>%s</p>
		</div>
		<div class="footer"><p>This is an automated email from Deep Focus Planner. Please do not reply.</p></div>
	</div>
</body>
</html>
`, m.Heading, m.greeting(), m.Intro, m.Link, m.Action, m.Link, humanDuration(m.Expiry), m.Outro)
}

func (m emailMessage) Text() string {
	return fmt.Sprintf(`%s

%s

%s:
%s

This link will expire in %s.

%s

---
This is an automated email from Deep Focus Planner. Please do not reply.
`, m.greeting(), m.Intro, m.Action, m.Link, humanDuration(m.Expiry), m.Outro)
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= 48*time.Hour:
		return fmt.Sprintf("%d days", int(d.Hours()/24))
	case d >= 2*time.Hour:
		return fmt.Sprintf("%d hours", int(d.Hours()))
	case d >= time.Hour:
		return "1 hour"
	default:
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	}
}
