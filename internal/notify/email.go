// Package notify delivers failed-inspection alerts by webhook, email and an
// append-only alert log.
package notify

import (
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/oszuidwest/cranecheck/internal/session"
	"github.com/oszuidwest/cranecheck/internal/util"
)

// EmailConfig contains SMTP server settings for email alerts.
type EmailConfig struct {
	Host       string
	Port       int
	FromName   string
	Username   string
	Password   string
	Recipients string
}

// SendFailedInspectionAlert emails the failed items of an inspection.
func SendFailedInspectionAlert(cfg *EmailConfig, r session.Report) error {
	if !util.IsConfigured(cfg.Host, cfg.Username, cfg.Recipients) {
		return nil // Silently skip if not configured
	}

	subject := fmt.Sprintf("[ALERT] Crane inspection failed - %s", r.ChecklistTitle)
	return sendEmail(cfg, subject, failedInspectionBody(r))
}

// failedInspectionBody renders the plain-text alert body.
func failedInspectionBody(r session.Report) string {
	var b strings.Builder
	b.WriteString("A pre-operation crane inspection did not pass.\n\n")
	fmt.Fprintf(&b, "Checklist:  %s (%s)\n", r.ChecklistTitle, r.ChecklistID)
	for _, v := range r.Identity {
		if v.Value != "" {
			fmt.Fprintf(&b, "%s: %s\n", v.Label, v.Value)
		}
	}
	fmt.Fprintf(&b, "Completed:  %s\n", util.FormatHuman(r.CompletedAt))
	fmt.Fprintf(&b, "Reference:  %s\n\n", r.ID)

	fmt.Fprintf(&b, "Failed items (%d of %d):\n", len(r.Failed), len(r.Answers))
	for _, a := range r.Failed {
		fmt.Fprintf(&b, "  - %s  [%s]\n", a.Question, a.Response)
	}
	b.WriteString("\nOperation must not start until the items are remediated.")
	return b.String()
}

// SendTestEmail sends a test email to verify SMTP configuration.
func SendTestEmail(cfg *EmailConfig) error {
	if cfg.Host == "" {
		return fmt.Errorf("SMTP host not configured")
	}
	if cfg.Username == "" {
		return fmt.Errorf("email username not configured")
	}
	if cfg.Recipients == "" {
		return fmt.Errorf("email recipients not configured")
	}

	subject := "[TEST] Crane Checklist"
	body := fmt.Sprintf(
		"Test email from the crane checklist.\n\n"+
			"Time: %s\n\n"+
			"SMTP configuration is working correctly.",
		util.HumanTime(),
	)

	return sendEmail(cfg, subject, body)
}

// parseRecipients splits the comma-separated recipient list.
func parseRecipients(list string) []string {
	var recipients []string
	for _, r := range strings.Split(list, ",") {
		if r = strings.TrimSpace(r); r != "" {
			recipients = append(recipients, r)
		}
	}
	return recipients
}

// sendEmail delivers an email message to configured recipients.
func sendEmail(cfg *EmailConfig, subject, body string) error {
	recipients := parseRecipients(cfg.Recipients)
	if len(recipients) == 0 {
		return fmt.Errorf("no valid recipients")
	}

	m := mail.NewMsg()
	if cfg.FromName != "" {
		if err := m.FromFormat(cfg.FromName, cfg.Username); err != nil {
			return util.WrapError("set from address", err)
		}
	} else {
		if err := m.From(cfg.Username); err != nil {
			return util.WrapError("set from address", err)
		}
	}
	if err := m.To(recipients...); err != nil {
		return util.WrapError("set recipient address", err)
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextPlain, body)

	c, err := mail.NewClient(cfg.Host, clientOptions(cfg)...)
	if err != nil {
		return util.WrapError("create SMTP client", err)
	}

	if err := c.DialAndSend(m); err != nil {
		return util.WrapError("send email", err)
	}

	return nil
}

// clientOptions selects the TLS policy from the port.
func clientOptions(cfg *EmailConfig) []mail.Option {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	}

	switch cfg.Port {
	case 465: // SMTPS - implicit TLS
		opts = append(opts, mail.WithSSL())
	case 587: // Submission - STARTTLS required
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	default: // Port 25 or custom - opportunistic TLS
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}
	return opts
}
