// Package mailer renders and dispatches the double-opt-in confirmation
// email through AWS SES. Sending is the only externally visible side
// effect of a sign-up, so every dispatch carries a UUID that appears in
// both the SES message tags and the service logs.
package mailer

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/google/uuid"
	"github.com/osteele/liquid"

	"github.com/cozy-blogs/carajillo/internal/config"
	"github.com/cozy-blogs/carajillo/internal/pkg/apierr"
	"github.com/cozy-blogs/carajillo/internal/pkg/logger"
)

// SendEmailAPI is the slice of the SES v2 API the sender uses.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type confirmationTemplate struct {
	subject *liquid.Template
	html    *liquid.Template
	text    *liquid.Template
}

// Sender dispatches confirmation emails via SES.
type Sender struct {
	client     SendEmailAPI
	sender     string
	senderName string
	siteName   string
	templates  map[string]*confirmationTemplate
}

// NewSender creates an SES-backed sender from static credentials and
// parses every template. A template that fails to parse is a startup
// error, never a send-time one.
func NewSender(ctx context.Context, cfg config.MailConfig) (*Sender, error) {
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
		awsconfig.WithHTTPClient(&http.Client{Timeout: cfg.Timeout()}),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return newSender(sesv2.NewFromConfig(awsCfg), cfg)
}

func newSender(client SendEmailAPI, cfg config.MailConfig) (*Sender, error) {
	templates, err := parseTemplates(newTemplateEngine())
	if err != nil {
		return nil, err
	}

	return &Sender{
		client:     client,
		sender:     cfg.Sender,
		senderName: cfg.SenderName,
		siteName:   cfg.SiteName,
		templates:  templates,
	}, nil
}

func newTemplateEngine() *liquid.Engine {
	engine := liquid.NewEngine()

	// Default value filter: {{ site_name | default: "our newsletter" }}
	engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		strVal := fmt.Sprintf("%v", value)
		if strVal == "" || strVal == "<nil>" {
			return defaultVal
		}
		return value
	})

	return engine
}

func parseTemplates(engine *liquid.Engine) (map[string]*confirmationTemplate, error) {
	templates := make(map[string]*confirmationTemplate, len(templateSources))
	for lang, src := range templateSources {
		subject, err := engine.ParseString(src.subject)
		if err != nil {
			return nil, fmt.Errorf("parse %s subject template: %w", lang, err)
		}
		html, err := engine.ParseString(src.html)
		if err != nil {
			return nil, fmt.Errorf("parse %s html template: %w", lang, err)
		}
		text, err := engine.ParseString(src.text)
		if err != nil {
			return nil, fmt.Errorf("parse %s text template: %w", lang, err)
		}
		templates[lang] = &confirmationTemplate{subject: subject, html: html, text: text}
	}
	return templates, nil
}

// SendConfirmation renders the confirmation email for the requested
// language and sends it. SES failures classify as the mail dispatcher
// being unavailable; they are never retried here.
func (s *Sender) SendConfirmation(ctx context.Context, email, confirmURL, language string) error {
	tpl := s.templateFor(language)
	bindings := liquid.Bindings{
		"confirm_url": confirmURL,
		"site_name":   s.siteName,
	}

	subject, err := render(tpl.subject, bindings)
	if err != nil {
		return fmt.Errorf("render subject: %w", err)
	}
	htmlBody, err := render(tpl.html, bindings)
	if err != nil {
		return fmt.Errorf("render html body: %w", err)
	}
	textBody, err := render(tpl.text, bindings)
	if err != nil {
		return fmt.Errorf("render text body: %w", err)
	}

	dispatchID := uuid.NewString()

	from := s.sender
	if s.senderName != "" {
		from = fmt.Sprintf("%s <%s>", s.senderName, s.sender)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{email}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(textBody), Charset: aws.String("UTF-8")},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("dispatch_id"), Value: aws.String(dispatchID)},
			{Name: aws.String("kind"), Value: aws.String("confirmation")},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return apierr.Upstream("mail dispatcher").
			WithDetail("ses send (dispatch %s): %v", dispatchID, err)
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	logger.Info("confirmation email dispatched",
		"email", email,
		"language", language,
		"dispatch_id", dispatchID,
		"message_id", messageID,
	)
	return nil
}

// templateFor resolves a BCP 47 language tag to a template set by its
// primary subtag, falling back to English.
func (s *Sender) templateFor(language string) *confirmationTemplate {
	lang := strings.ToLower(strings.TrimSpace(language))
	if base, _, found := strings.Cut(lang, "-"); found {
		lang = base
	}
	if tpl, ok := s.templates[lang]; ok {
		return tpl
	}
	return s.templates["en"]
}

func render(tpl *liquid.Template, bindings liquid.Bindings) (string, error) {
	out, err := tpl.RenderString(bindings)
	if err != nil {
		return "", err
	}
	return out, nil
}
