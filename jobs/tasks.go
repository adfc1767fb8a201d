package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
)

// Email kinds the worker knows how to render.
const (
	EmailKindVerification  = "verification"
	EmailKindPasswordReset = "password_reset"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To    string `json:"to"`
	Kind  string `json:"kind"`
	Token string `json:"token"`
	Name  string `json:"name"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// EmailSender renders and delivers a transactional email.
type EmailSender interface {
	SendVerification(ctx context.Context, email, token, name string) error
	SendPasswordReset(ctx context.Context, email, token, name string) error
}

// NewSendEmailHandler returns the handler processing TaskTypeSendEmail
// tasks with the given sender.
func NewSendEmailHandler(sender EmailSender, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		var err error
		switch payload.Kind {
		case EmailKindVerification:
			err = sender.SendVerification(ctx, payload.To, payload.Token, payload.Name)
		case EmailKindPasswordReset:
			err = sender.SendPasswordReset(ctx, payload.To, payload.Token, payload.Name)
		default:
			logger.Warn("unknown email kind", slog.String("kind", payload.Kind))
			return asynq.SkipRetry
		}
		if err != nil {
			logger.Error("send email", slog.String("to", payload.To), slog.Any("error", err))
			return fmt.Errorf("send %s email: %w", payload.Kind, err)
		}
		return nil
	}
}
