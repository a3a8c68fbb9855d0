package action

import (
	"context"
	"errors"
)

// Notification templates used by the built-in providers.
const (
	TemplatePasswordUpdated   = "password-updated"
	TemplateEmailVerification = "email-verification"
)

const inputNewPassword = "new_password"

// ErrMissingInput is returned when a completing step lacks a required
// flow-controller input.
var ErrMissingInput = errors.New("required action input missing")

// UpdatePasswordConfig wires the collaborators of the password provider.
type UpdatePasswordConfig struct {
	Updater  CredentialUpdater
	Notifier Notifier
}

// UpdatePassword is the built-in UPDATE_PASSWORD provider. On success it
// persists the new credential through the injected updater, asks the engine
// to emit an update_credential follow-up event, and notifies the user. It is
// the canonical terminate-other-sessions action.
type UpdatePassword struct {
	updater  CredentialUpdater
	notifier Notifier
}

// NewUpdatePassword validates the config and returns the provider.
func NewUpdatePassword(cfg UpdatePasswordConfig) (*UpdatePassword, error) {
	if cfg.Updater == nil {
		return nil, errors.New("update password provider requires a credential updater")
	}
	return &UpdatePassword{
		updater:  cfg.Updater,
		notifier: cfg.Notifier,
	}, nil
}

func (p *UpdatePassword) ID() string {
	return TypeUpdatePassword
}

func (p *UpdatePassword) Begin(ctx context.Context, req *Request) error {
	return nil
}

func (p *UpdatePassword) Execute(ctx context.Context, req *Request) (*Outcome, error) {
	newPassword := req.Input[inputNewPassword]
	if newPassword == "" {
		return nil, ErrMissingInput
	}

	if err := p.updater.UpdatePassword(ctx, req.RealmID, req.UserID, newPassword); err != nil {
		return nil, err
	}

	if p.notifier != nil {
		// Best effort; the credential change already happened.
		_ = p.notifier.Send(ctx, Notification{
			RealmID:  req.RealmID,
			UserID:   req.UserID,
			Template: TemplatePasswordUpdated,
		})
	}

	return &Outcome{
		Emissions: []Emission{
			{
				Type:    "update_credential",
				Details: map[string]string{"credential_type": "password"},
			},
		},
		TerminateOtherSessions: true,
	}, nil
}
