package notification

import (
	"context"
	"fmt"

	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/config"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/db/models"
	"github.com/FabienDubin/AppsByMci-V2-sub002/internal/utils/templateutil"
	"gopkg.in/gomail.v2"
)

const defaultSubject = "Your image is ready"

const defaultTemplate = `<html><body>
<p>Hi {{firstName}},</p>
<p>Your image is ready! <a href="{{imageUrl}}">View it here</a>.</p>
</body></html>`

// EmailNotifier delivers results over SMTP. The animation's template fields
// go through the same substitution engine as prompts.
type EmailNotifier struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailNotifier(cfg *config.SMTPConfig) (*EmailNotifier, error) {
	if cfg == nil || cfg.Host == "" {
		return nil, fmt.Errorf("smtp is not configured")
	}

	return &EmailNotifier{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}, nil
}

func (n *EmailNotifier) SendGenerationResult(ctx context.Context, generation *models.Generation, animation *models.Animation) error {
	to := generation.ParticipantData.Email
	if to == "" {
		return fmt.Errorf("participant has no email address")
	}

	vars := map[string]string{
		"firstName":     generation.ParticipantData.FirstName,
		"lastName":      generation.ParticipantData.LastName,
		"email":         to,
		"animationName": animation.Name,
		"imageUrl":      generation.GeneratedImageURL,
	}
	for key, value := range generation.ParticipantData.Answers {
		vars[key] = value
	}

	subject := animation.EmailSubject
	if subject == "" {
		subject = defaultSubject
	}
	template := animation.EmailTemplate
	if template == "" {
		template = defaultTemplate
	}

	message := gomail.NewMessage()
	message.SetHeader("From", n.from)
	message.SetHeader("To", to)
	message.SetHeader("Subject", templateutil.Substitute(subject, vars))
	message.SetBody("text/html", templateutil.Substitute(template, vars))

	if err := n.dialer.DialAndSend(message); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

var _ Notifier = (*EmailNotifier)(nil)
