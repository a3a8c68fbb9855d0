package action

import (
	"context"
	"errors"
	"testing"
)

type fakeUpdater struct {
	err   error
	calls []string
}

func (f *fakeUpdater) UpdatePassword(ctx context.Context, realmID, userID, newPassword string) error {
	f.calls = append(f.calls, realmID+"/"+userID+"/"+newPassword)
	return f.err
}

type fakeProfileUpdater struct {
	err  error
	last map[string]string
}

func (f *fakeProfileUpdater) UpdateProfile(ctx context.Context, realmID, userID string, attributes map[string]string) error {
	f.last = attributes
	return f.err
}

type fakeNotifier struct {
	err  error
	sent []Notification
}

func (f *fakeNotifier) Send(ctx context.Context, n Notification) error {
	f.sent = append(f.sent, n)
	return f.err
}

type fakeMarker struct {
	err    error
	marked []string
}

func (f *fakeMarker) MarkEmailVerified(ctx context.Context, realmID, userID string) error {
	f.marked = append(f.marked, realmID+"/"+userID)
	return f.err
}

func TestUpdatePasswordExecute(t *testing.T) {
	updater := &fakeUpdater{}
	notifier := &fakeNotifier{}
	p, err := NewUpdatePassword(UpdatePasswordConfig{Updater: updater, Notifier: notifier})
	if err != nil {
		t.Fatalf("NewUpdatePassword failed: %v", err)
	}

	outcome, err := p.Execute(context.Background(), &Request{
		RealmID: "realm-a",
		UserID:  "user-1",
		Input:   map[string]string{"new_password": "s3cret"},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(updater.calls) != 1 || updater.calls[0] != "realm-a/user-1/s3cret" {
		t.Fatalf("updater calls = %v", updater.calls)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].Template != TemplatePasswordUpdated {
		t.Fatalf("notifications = %+v", notifier.sent)
	}
	if !outcome.TerminateOtherSessions {
		t.Fatal("password update must be a terminate-other-sessions action")
	}
	if len(outcome.Emissions) != 1 {
		t.Fatalf("emissions = %+v", outcome.Emissions)
	}
	em := outcome.Emissions[0]
	if em.Type != "update_credential" || em.Details["credential_type"] != "password" {
		t.Fatalf("emission = %+v", em)
	}
}

func TestUpdatePasswordMissingInput(t *testing.T) {
	p, err := NewUpdatePassword(UpdatePasswordConfig{Updater: &fakeUpdater{}})
	if err != nil {
		t.Fatalf("NewUpdatePassword failed: %v", err)
	}
	if _, err := p.Execute(context.Background(), &Request{Input: nil}); !errors.Is(err, ErrMissingInput) {
		t.Fatalf("Execute = %v, want ErrMissingInput", err)
	}
}

func TestUpdatePasswordUpdaterFailure(t *testing.T) {
	boom := errors.New("store down")
	notifier := &fakeNotifier{}
	p, err := NewUpdatePassword(UpdatePasswordConfig{Updater: &fakeUpdater{err: boom}, Notifier: notifier})
	if err != nil {
		t.Fatalf("NewUpdatePassword failed: %v", err)
	}
	if _, err := p.Execute(context.Background(), &Request{Input: map[string]string{"new_password": "x"}}); !errors.Is(err, boom) {
		t.Fatalf("Execute = %v, want updater error", err)
	}
	if len(notifier.sent) != 0 {
		t.Fatal("notified despite a failed credential update")
	}
}

func TestUpdatePasswordNotifierFailureIsBestEffort(t *testing.T) {
	p, err := NewUpdatePassword(UpdatePasswordConfig{
		Updater:  &fakeUpdater{},
		Notifier: &fakeNotifier{err: errors.New("smtp down")},
	})
	if err != nil {
		t.Fatalf("NewUpdatePassword failed: %v", err)
	}
	if _, err := p.Execute(context.Background(), &Request{Input: map[string]string{"new_password": "x"}}); err != nil {
		t.Fatalf("Execute = %v; notification failure must not fail the step", err)
	}
}

func TestUpdateProfileExecute(t *testing.T) {
	updater := &fakeProfileUpdater{}
	p, err := NewUpdateProfile(updater)
	if err != nil {
		t.Fatalf("NewUpdateProfile failed: %v", err)
	}

	_, err = p.Execute(context.Background(), &Request{
		RealmID: "realm-a",
		UserID:  "user-1",
		Input: map[string]string{
			"profile.firstName": "Ada",
			"profile.lastName":  "Lovelace",
			"unrelated":         "ignored",
			"profile.":          "ignored",
		},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(updater.last) != 2 || updater.last["firstName"] != "Ada" || updater.last["lastName"] != "Lovelace" {
		t.Fatalf("attributes = %v", updater.last)
	}
}

func TestUpdateProfileNoAttributes(t *testing.T) {
	p, err := NewUpdateProfile(&fakeProfileUpdater{})
	if err != nil {
		t.Fatalf("NewUpdateProfile failed: %v", err)
	}
	if _, err := p.Execute(context.Background(), &Request{Input: map[string]string{"other": "x"}}); !errors.Is(err, ErrMissingInput) {
		t.Fatalf("Execute = %v, want ErrMissingInput", err)
	}
}

func TestVerifyEmail(t *testing.T) {
	notifier := &fakeNotifier{}
	marker := &fakeMarker{}
	p, err := NewVerifyEmail(notifier, marker)
	if err != nil {
		t.Fatalf("NewVerifyEmail failed: %v", err)
	}
	ctx := context.Background()
	req := &Request{RealmID: "realm-a", UserID: "user-1"}

	if err := p.Begin(ctx, req); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].Template != TemplateEmailVerification {
		t.Fatalf("notifications = %+v", notifier.sent)
	}

	if _, err := p.Execute(ctx, req); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(marker.marked) != 1 || marker.marked[0] != "realm-a/user-1" {
		t.Fatalf("marked = %v", marker.marked)
	}
}
