package user

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/restaurant-directory/pkg/errors"
)

func TestCreateValidates(t *testing.T) {
	svc := NewService(NewMemoryStore())
	tests := []struct {
		name string
		in   CreateInput
	}{
		{"missing uid", CreateInput{Name: "Asha", PhoneNumber: "+919900000001"}},
		{"missing name", CreateInput{UID: "fb-1", PhoneNumber: "+919900000001"}},
		{"blank phone", CreateInput{UID: "fb-1", Name: "Asha", PhoneNumber: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tt.in); !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestCreateAndLookup(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()
	u, err := svc.Create(ctx, CreateInput{UID: "fb-1", Name: " Asha ", PhoneNumber: "+919900000001"})
	if err != nil {
		t.Fatal(err)
	}
	if u.ID == "" || u.Name != "Asha" || u.IsAdmin {
		t.Fatalf("unexpected user %+v", u)
	}

	got, err := svc.GetByUID(ctx, "fb-1")
	if err != nil || got.ID != u.ID {
		t.Fatalf("GetByUID = %+v, %v", got, err)
	}
	if _, err := svc.GetByUID(ctx, "nobody"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{UID: "fb-1", Name: "Dup", PhoneNumber: "1"}); !errors.Is(err, apperrors.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestIsNewUser(t *testing.T) {
	store := NewMemoryStore(&User{UID: "fb-2", Name: "Ravi", PhoneNumber: "+919900000002"})
	svc := NewService(store)
	ctx := context.Background()

	u, isNew, err := svc.IsNewUser(ctx, "+919900000002")
	if err != nil || isNew || u == nil || u.Name != "Ravi" {
		t.Fatalf("existing phone: %+v, %v, %v", u, isNew, err)
	}
	u, isNew, err = svc.IsNewUser(ctx, "+919900000003")
	if err != nil || !isNew || u != nil {
		t.Fatalf("unknown phone: %+v, %v, %v", u, isNew, err)
	}
	if _, _, err := svc.IsNewUser(ctx, ""); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	admin := &User{ID: "u-admin", UID: "fb-0", Name: "Ops", IsAdmin: true}
	svc := NewService(NewMemoryStore(admin))
	ctx := context.Background()

	u, err := svc.Authenticate(ctx, "u-admin")
	if err != nil || !u.IsAdmin {
		t.Fatalf("Authenticate = %+v, %v", u, err)
	}
	for _, id := range []string{"", "u-missing"} {
		_, err := svc.Authenticate(ctx, id)
		if !errors.Is(err, apperrors.ErrForbidden) || apperrors.HTTPStatusCode(err) != 403 {
			t.Errorf("Authenticate(%q) = %v, want 403", id, err)
		}
	}
}
