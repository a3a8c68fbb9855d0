package action

import (
	"context"
	"errors"
	"strings"
)

const profileInputPrefix = "profile."

// UpdateProfile is the built-in UPDATE_PROFILE provider. It forwards
// "profile."-prefixed inputs to the injected updater. No follow-up events,
// no session side effects.
type UpdateProfile struct {
	updater ProfileUpdater
}

func NewUpdateProfile(updater ProfileUpdater) (*UpdateProfile, error) {
	if updater == nil {
		return nil, errors.New("update profile provider requires a profile updater")
	}
	return &UpdateProfile{updater: updater}, nil
}

func (p *UpdateProfile) ID() string {
	return TypeUpdateProfile
}

func (p *UpdateProfile) Begin(ctx context.Context, req *Request) error {
	return nil
}

func (p *UpdateProfile) Execute(ctx context.Context, req *Request) (*Outcome, error) {
	attributes := make(map[string]string)
	for k, v := range req.Input {
		if name, ok := strings.CutPrefix(k, profileInputPrefix); ok && name != "" {
			attributes[name] = v
		}
	}
	if len(attributes) == 0 {
		return nil, ErrMissingInput
	}

	if err := p.updater.UpdateProfile(ctx, req.RealmID, req.UserID, attributes); err != nil {
		return nil, err
	}

	return &Outcome{}, nil
}
