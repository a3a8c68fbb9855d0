package action

import (
	"context"
	"errors"
)

// VerifyEmail is the built-in VERIFY_EMAIL provider. Begin dispatches the
// verification message; Execute records the verified state through the
// injected marker. The challenge token lifecycle lives with the notifier's
// backend, not in the session.
type VerifyEmail struct {
	notifier Notifier
	marker   EmailVerifiedMarker
}

// EmailVerifiedMarker is the external collaborator that flips the verified
// flag on the user record.
type EmailVerifiedMarker interface {
	MarkEmailVerified(ctx context.Context, realmID, userID string) error
}

func NewVerifyEmail(notifier Notifier, marker EmailVerifiedMarker) (*VerifyEmail, error) {
	if notifier == nil {
		return nil, errors.New("verify email provider requires a notifier")
	}
	if marker == nil {
		return nil, errors.New("verify email provider requires a verified marker")
	}
	return &VerifyEmail{notifier: notifier, marker: marker}, nil
}

func (p *VerifyEmail) ID() string {
	return TypeVerifyEmail
}

func (p *VerifyEmail) Begin(ctx context.Context, req *Request) error {
	return p.notifier.Send(ctx, Notification{
		RealmID:  req.RealmID,
		UserID:   req.UserID,
		Template: TemplateEmailVerification,
	})
}

func (p *VerifyEmail) Execute(ctx context.Context, req *Request) (*Outcome, error) {
	if err := p.marker.MarkEmailVerified(ctx, req.RealmID, req.UserID); err != nil {
		return nil, err
	}
	return &Outcome{}, nil
}
