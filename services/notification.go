package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"debt-splitter/config"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
)

const notifyConcurrency = 4

// NotificationService e-mails (SendGrid) and pushes (FCM) new debts to the
// debtor. Each channel is skipped when it is not configured.
type NotificationService struct {
	email   *sendgrid.Client
	from    *mail.Email
	push    *messaging.Client
	appName string
	log     *zap.Logger
}

func NewNotificationService(ctx context.Context, cfg *config.Config, log *zap.Logger) *NotificationService {
	if log == nil {
		log = zap.NewNop()
	}
	ns := &NotificationService{
		appName: cfg.AppName,
		log:     log.Named("notify"),
	}

	if cfg.SendGridAPIKey != "" {
		ns.email = sendgrid.NewSendClient(cfg.SendGridAPIKey)
		ns.from = mail.NewEmail(cfg.AppName, cfg.SendGridFrom)
	} else {
		ns.log.Warn("⚠️  SendGrid API key not set, e-mail notifications disabled")
	}

	if cfg.FirebaseCredPath != "" {
		app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(cfg.FirebaseCredPath))
		if err != nil {
			ns.log.Warn("⚠️  Firebase init failed, push notifications disabled", zap.Error(err))
			return ns
		}
		client, err := app.Messaging(ctx)
		if err != nil {
			ns.log.Warn("⚠️  FCM client init failed, push notifications disabled", zap.Error(err))
			return ns
		}
		ns.push = client
	}

	return ns
}

// NotifyDebts sends every notice, a few at a time. Failures are logged.
func (ns *NotificationService) NotifyDebts(ctx context.Context, notices []DebtNotice) {
	if ns.email == nil && ns.push == nil {
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(notifyConcurrency)
	for _, n := range notices {
		if n.Debtor.IsParty() {
			continue
		}
		n := n
		g.Go(func() error {
			ns.notifyDebt(ctx, n)
			return nil
		})
	}
	g.Wait()
}

func (ns *NotificationService) notifyDebt(ctx context.Context, n DebtNotice) {
	title, body := debtMessage(n)

	if ns.push != nil && n.Debtor.FCMToken != "" {
		_, err := ns.push.Send(ctx, &messaging.Message{
			Token:        n.Debtor.FCMToken,
			Notification: &messaging.Notification{Title: title, Body: body},
			Data: map[string]string{
				"type":     "debt_created",
				"receiver": n.Creditor,
				"amount":   FormatAmount(n.Amount),
			},
		})
		if err != nil {
			ns.log.Warn("push failed", zap.String("username", n.Debtor.Username), zap.Error(err))
		}
	}

	if ns.email != nil && n.Debtor.Email != "" {
		html, err := renderDebtEmail(ns.appName, n)
		if err != nil {
			ns.log.Warn("email template failed", zap.Error(err))
			return
		}
		to := mail.NewEmail(n.Debtor.Username, n.Debtor.Email)
		resp, err := ns.email.Send(mail.NewSingleEmail(ns.from, title, to, body, html))
		switch {
		case err != nil:
			ns.log.Warn("email send failed", zap.String("to", n.Debtor.Email), zap.Error(err))
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			ns.log.Warn("SendGrid rejected email", zap.String("to", n.Debtor.Email), zap.Int("status", resp.StatusCode))
		default:
			ns.log.Debug("email sent", zap.String("to", n.Debtor.Email))
		}
	}
}

func debtMessage(n DebtNotice) (title, body string) {
	title = fmt.Sprintf("You owe %s %s", n.Creditor, FormatAmount(n.Amount))
	if n.GroupName != "" {
		body = fmt.Sprintf("Settling \"%s\" left you owing %s to %s.", n.GroupName, FormatAmount(n.Amount), n.Creditor)
	} else {
		body = fmt.Sprintf("A cost split left you owing %s to %s.", FormatAmount(n.Amount), n.Creditor)
	}
	return title, body
}

var debtEmailTemplate = template.Must(template.New("debt").Parse(`
<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f5f5f5;">
	<div style="background: white; border-radius: 12px; padding: 32px; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">
		<h2 style="color: #1DB954; margin-top: 0;">New debt recorded</h2>
		<p>Hi <strong>{{.Username}}</strong>,</p>
		{{if .GroupName}}<p>The expenses of <strong>{{.GroupName}}</strong> were settled.</p>{{end}}
		<div style="background: #f8f9fa; border-radius: 8px; padding: 16px; margin: 16px 0;">
			<p style="margin: 4px 0; color: #e53e3e; font-size: 18px;"><strong>You owe {{.Creditor}} {{.Amount}}</strong></p>
		</div>
		<p style="color: #999; font-size: 12px; margin-top: 24px;">{{.AppName}}</p>
	</div>
</body>
</html>`))

func renderDebtEmail(appName string, n DebtNotice) (string, error) {
	var buf bytes.Buffer
	err := debtEmailTemplate.Execute(&buf, map[string]string{
		"AppName":   appName,
		"Username":  n.Debtor.Username,
		"GroupName": n.GroupName,
		"Creditor":  n.Creditor,
		"Amount":    FormatAmount(n.Amount),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
