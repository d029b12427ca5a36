package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/google/uuid"

	"github.com/cozy-blogs/carajillo/internal/config"
	"github.com/cozy-blogs/carajillo/internal/pkg/apierr"
)

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-123")}, nil
}

func testSender(t *testing.T, fake *fakeSES) *Sender {
	t.Helper()
	s, err := newSender(fake, config.MailConfig{
		Sender:     "news@example.com",
		SenderName: "Example News",
		SiteName:   "Example Blog",
	})
	if err != nil {
		t.Fatalf("newSender failed: %v", err)
	}
	return s
}

func TestSendConfirmation(t *testing.T) {
	fake := &fakeSES{}
	s := testSender(t, fake)

	confirmURL := "https://signup.example.com/subscription/confirm?token=abc123"
	err := s.SendConfirmation(context.Background(), "jane@example.com", confirmURL, "en")
	if err != nil {
		t.Fatalf("SendConfirmation failed: %v", err)
	}
	if fake.input == nil {
		t.Fatal("Expected SendEmail to be called")
	}

	if got := *fake.input.FromEmailAddress; got != "Example News <news@example.com>" {
		t.Errorf("Unexpected from address: %s", got)
	}
	if got := fake.input.Destination.ToAddresses; len(got) != 1 || got[0] != "jane@example.com" {
		t.Errorf("Unexpected destination: %v", got)
	}

	subject := *fake.input.Content.Simple.Subject.Data
	if !strings.Contains(subject, "Example Blog") {
		t.Errorf("Expected site name in subject, got %q", subject)
	}

	htmlBody := *fake.input.Content.Simple.Body.Html.Data
	if !strings.Contains(htmlBody, confirmURL) {
		t.Error("Expected confirm URL in HTML body")
	}
	textBody := *fake.input.Content.Simple.Body.Text.Data
	if !strings.Contains(textBody, confirmURL) {
		t.Error("Expected confirm URL in text body")
	}
}

func TestSendConfirmationDispatchTag(t *testing.T) {
	fake := &fakeSES{}
	s := testSender(t, fake)

	err := s.SendConfirmation(context.Background(), "jane@example.com", "https://x/confirm?token=t", "en")
	if err != nil {
		t.Fatalf("SendConfirmation failed: %v", err)
	}

	var dispatchID string
	for _, tag := range fake.input.EmailTags {
		if *tag.Name == "dispatch_id" {
			dispatchID = *tag.Value
		}
	}
	if dispatchID == "" {
		t.Fatal("Expected a dispatch_id tag")
	}
	if _, err := uuid.Parse(dispatchID); err != nil {
		t.Errorf("dispatch_id is not a UUID: %s", dispatchID)
	}
}

func TestSendConfirmationLanguages(t *testing.T) {
	tests := []struct {
		language    string
		wantSubject string
	}{
		{language: "en", wantSubject: "Confirm your subscription"},
		{language: "es", wantSubject: "Confirma tu suscripción"},
		{language: "es-MX", wantSubject: "Confirma tu suscripción"},
		{language: "fr", wantSubject: "Confirmez votre inscription"},
		{language: "de", wantSubject: "Confirm your subscription"}, // unknown falls back to English
		{language: "", wantSubject: "Confirm your subscription"},
	}

	for _, tc := range tests {
		t.Run("lang "+tc.language, func(t *testing.T) {
			fake := &fakeSES{}
			s := testSender(t, fake)

			err := s.SendConfirmation(context.Background(), "jane@example.com", "https://x/confirm?token=t", tc.language)
			if err != nil {
				t.Fatalf("SendConfirmation failed: %v", err)
			}

			subject := *fake.input.Content.Simple.Subject.Data
			if !strings.Contains(subject, tc.wantSubject) {
				t.Errorf("For language %q expected subject containing %q, got %q", tc.language, tc.wantSubject, subject)
			}
		})
	}
}

// An empty site name renders the template's default, not a blank.
func TestSendConfirmationSiteNameDefault(t *testing.T) {
	fake := &fakeSES{}
	s, err := newSender(fake, config.MailConfig{Sender: "news@example.com"})
	if err != nil {
		t.Fatalf("newSender failed: %v", err)
	}

	if err := s.SendConfirmation(context.Background(), "jane@example.com", "https://x/confirm?token=t", "en"); err != nil {
		t.Fatalf("SendConfirmation failed: %v", err)
	}

	subject := *fake.input.Content.Simple.Subject.Data
	if !strings.Contains(subject, "our newsletter") {
		t.Errorf("Expected default site name in subject, got %q", subject)
	}
	if got := *fake.input.FromEmailAddress; got != "news@example.com" {
		t.Errorf("Expected bare sender without a display name, got %s", got)
	}
}

func TestSendConfirmationSESFailure(t *testing.T) {
	fake := &fakeSES{err: errors.New("throttled")}
	s := testSender(t, fake)

	err := s.SendConfirmation(context.Background(), "jane@example.com", "https://x/confirm?token=t", "en")
	if err == nil {
		t.Fatal("Expected an error")
	}
	if got := apierr.From(err).Reason; got != apierr.ReasonUpstream {
		t.Errorf("Expected reason %s, got %s", apierr.ReasonUpstream, got)
	}
}

func TestAllTemplatesParse(t *testing.T) {
	templates, err := parseTemplates(newTemplateEngine())
	if err != nil {
		t.Fatalf("parseTemplates failed: %v", err)
	}
	for lang := range templateSources {
		if templates[lang] == nil {
			t.Errorf("Missing parsed template for %s", lang)
		}
	}
}
