package user

import (
	"context"
	"errors"
	"testing"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(NewInMemory())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateDefaults(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, CreateInput{Email: "  Ada@Example.COM ", Name: " Ada ", Password: "pw-123456"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.Email != "ada@example.com" {
		t.Fatalf("email not normalised: %q", u.Email)
	}
	if u.Name != "Ada" {
		t.Fatalf("name not trimmed: %q", u.Name)
	}
	if u.Role != RoleUser {
		t.Fatalf("zero role should default to user, got %s", u.Role)
	}
	if u.Status != StatusEnabled {
		t.Fatalf("new accounts start enabled, got %d", u.Status)
	}
	if u.PasswordHash == "" || u.PasswordHash == "pw-123456" {
		t.Fatal("password must be stored hashed")
	}
	if err := VerifyPassword(u.PasswordHash, "pw-123456"); err != nil {
		t.Fatalf("hash does not verify: %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []CreateInput{
		{Email: "", Name: "A", Password: "pw"},
		{Email: "no-at-sign", Name: "A", Password: "pw"},
		{Email: "a@b.co", Name: "", Password: "pw"},
		{Email: "a@b.co", Name: "A", Password: ""},
		{Email: "a@b.co", Name: "A", Password: "pw", Role: Role("wizard")},
	}
	for i, in := range cases {
		if _, err := svc.Create(ctx, in); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestCreateDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{Email: "a@b.co", Name: "A", Password: "pw-123456"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{Email: "A@B.CO", Name: "B", Password: "pw-654321"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestAssignRoleReenables(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, CreateInput{Email: "a@b.co", Name: "A", Password: "pw-123456"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.SetStatus(ctx, u.ID, StatusDisabled); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	got, err := svc.AssignRole(ctx, u.ID, RoleStaff)
	if err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	if got.Role != RoleStaff {
		t.Fatalf("role not updated: %s", got.Role)
	}
	if got.Status != StatusEnabled {
		t.Fatalf("assigning a role must re-enable the account, got %d", got.Status)
	}
}

func TestChangePasswordChecksCurrent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, CreateInput{Email: "a@b.co", Name: "A", Password: "old-pw-123"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.ChangePassword(ctx, u.ID, "wrong-pw", "new-pw-123"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for wrong current password, got %v", err)
	}
	if err := svc.ChangePassword(ctx, u.ID, "old-pw-123", "new-pw-123"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	got, err := svc.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if err := VerifyPassword(got.PasswordHash, "new-pw-123"); err != nil {
		t.Fatalf("new password does not verify: %v", err)
	}
}

func TestListFilters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	seed := []CreateInput{
		{Email: "u1@b.co", Name: "Frodo", Password: "pw-123456"},
		{Email: "u2@b.co", Name: "Sam", Password: "pw-123456"},
		{Email: "s1@b.co", Name: "Gandalf", Password: "pw-123456", Role: RoleStaff},
	}
	for _, in := range seed {
		if _, err := svc.Create(ctx, in); err != nil {
			t.Fatalf("seed %s: %v", in.Email, err)
		}
	}

	staff := RoleStaff
	got, err := svc.List(ctx, Filter{Role: &staff})
	if err != nil {
		t.Fatalf("List by role: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Gandalf" {
		t.Fatalf("unexpected staff listing: %+v", got)
	}

	got, err = svc.List(ctx, Filter{Search: "fro"})
	if err != nil {
		t.Fatalf("List by search: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Frodo" {
		t.Fatalf("unexpected search result: %+v", got)
	}

	users, err := svc.ListByRole(ctx, RoleUser)
	if err != nil {
		t.Fatalf("ListByRole: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
}

func TestDeviceTokenSlots(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, CreateInput{Email: "a@b.co", Name: "A", Password: "pw-123456"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.SetDeviceToken(ctx, u.ID, PlatformAndroid, "and-1"); err != nil {
		t.Fatalf("SetDeviceToken android: %v", err)
	}
	if err := svc.SetDeviceToken(ctx, u.ID, PlatformIOS, "ios-1"); err != nil {
		t.Fatalf("SetDeviceToken ios: %v", err)
	}
	if err := svc.SetDeviceToken(ctx, u.ID, Platform("windows"), "x"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown platform, got %v", err)
	}

	if err := svc.ClearDeviceToken(ctx, u.ID, PlatformIOS); err != nil {
		t.Fatalf("ClearDeviceToken: %v", err)
	}

	got, err := svc.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.AndroidToken != "and-1" || got.IOSToken != "" {
		t.Fatalf("unexpected slots: android=%q ios=%q", got.AndroidToken, got.IOSToken)
	}
	if got.DeviceToken(PlatformAndroid) != "and-1" {
		t.Fatalf("DeviceToken helper mismatch")
	}
}
