package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/brindlehq/talentbase/internal/models"
)

// AWSSESNotifier sends security notifications to account owners using AWS SES.
type AWSSESNotifier struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

func NewAWSSESNotifier(region, fromAddress string, logger *slog.Logger) (*AWSSESNotifier, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESNotifier{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// NotifyAccountLocked emails the account owner that repeated failed login
// attempts locked their account. The lock stands whether or not the email
// goes out.
func (n *AWSSESNotifier) NotifyAccountLocked(ctx context.Context, account *models.Account, until time.Time) error {
	untilText := until.UTC().Format("15:04 UTC, Jan 2 2006")

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #f8f9fa; padding: 20px; text-align: center; border-radius: 4px; }
        .content { padding: 20px 0; }
        .warning { background-color: #fff3cd; padding: 10px; border-left: 4px solid #ffc107; margin: 10px 0; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Your Account Has Been Temporarily Locked</h1>
        </div>
        <div class="content">
            <p>Hello %s,</p>
            <p>We detected several unsuccessful sign-in attempts on your account, so we have temporarily locked it to protect you.</p>
            <div class="warning">
                <strong>The lock will lift automatically at %s.</strong> No action is needed if this was you.
            </div>
            <p><strong>Wasn't you?</strong><br>
            If you did not attempt to sign in, someone may be trying to guess your password. We recommend changing your password once the lock lifts and enabling two-factor authentication.</p>
        </div>
        <div class="footer">
            <p>This is an automated message. Please do not reply to this email.</p>
            <p>If you have any questions, please contact your HR administrator.</p>
        </div>
    </div>
</body>
</html>
`, account.Name, untilText)

	textBody := fmt.Sprintf(`Your Account Has Been Temporarily Locked

Hello %s,

We detected several unsuccessful sign-in attempts on your account, so we have temporarily locked it to protect you.

The lock will lift automatically at %s. No action is needed if this was you.

Wasn't you?
If you did not attempt to sign in, someone may be trying to guess your password. We recommend changing your password once the lock lifts and enabling two-factor authentication.

This is an automated message. Please do not reply to this email.
If you have any questions, please contact your HR administrator.
`, account.Name, untilText)

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{account.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Security alert: your account was temporarily locked"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := n.sesClient.SendEmail(ctx, input)
	if err != nil {
		n.logger.Error("failed to send lockout notification via SES",
			slog.String("account_id", account.ID),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.Info("lockout notification sent",
		slog.String("account_id", account.ID),
		slog.String("message_id", *result.MessageId))

	return nil
}

// NoopNotifier satisfies LockoutNotifier when outbound email is not
// configured, e.g. local development.
type NoopNotifier struct {
	logger *slog.Logger
}

func NewNoopNotifier(logger *slog.Logger) *NoopNotifier {
	return &NoopNotifier{logger: logger}
}

func (n *NoopNotifier) NotifyAccountLocked(ctx context.Context, account *models.Account, until time.Time) error {
	n.logger.Info("lockout notification suppressed (notifications disabled)",
		slog.String("account_id", account.ID))
	return nil
}
