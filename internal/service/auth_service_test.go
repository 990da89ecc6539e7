package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentmyparking/internal/db"
	"rentmyparking/internal/entities"
	apperrors "rentmyparking/internal/errors"
)

func TestLogin(t *testing.T) {
	accounts := newFakeAccounts(db.Account{
		ID:           "acc-1",
		Email:        "ana@example.com",
		PasswordHash: hashed("Secret123"),
		Role:         db.RoleRenter,
	})
	svc := NewAuthService(accounts, fakeSessions{})

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"Success", "ana@example.com", "Secret123", nil},
		{"Empty email", "", "Secret123", apperrors.ErrInvalidInput},
		{"Empty password", "ana@example.com", "", apperrors.ErrInvalidInput},
		{"Unknown email", "bob@example.com", "Secret123", apperrors.ErrNotFound},
		{"Email is case sensitive", "Ana@example.com", "Secret123", apperrors.ErrNotFound},
		{"Wrong password", "ana@example.com", "wrong", apperrors.ErrInvalidCredential},
		{"Password is case sensitive", "ana@example.com", "secret123", apperrors.ErrInvalidCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Login(context.Background(), tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, resp)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "acc-1", resp.AccountID)
			assert.Equal(t, "session-acc-1", resp.Token)
		})
	}
}

func TestRegister(t *testing.T) {
	base := entities.RegisterRequest{
		FirstName:      "Ana",
		LastName:       "Lopez",
		Email:          "ana@example.com",
		Password:       "Secret123",
		Phone:          "+33600000000",
		Role:           string(db.RoleOwner),
		ParkAddress:    "Rue de Rivoli",
		StreetNumber:   "12",
		City:           "Paris",
		Size:           string(db.SizeCar),
		OpenMechanism:  string(db.OpenRemote),
		ElectricCharge: true,
	}

	t.Run("Owner is stored hashed and available", func(t *testing.T) {
		accounts := newFakeAccounts()
		svc := NewAuthService(accounts, fakeSessions{})

		resp, err := svc.Register(context.Background(), base)
		require.NoError(t, err)

		stored := accounts.get(resp.AccountID)
		assert.NotEqual(t, "Secret123", stored.PasswordHash)
		assert.True(t, stored.Available)
		assert.Equal(t, "true", stored.ElectricCharge)
		assert.True(t, stored.Phone.Valid)

		_, err = svc.Login(context.Background(), "ana@example.com", "Secret123")
		assert.NoError(t, err)
	})

	t.Run("Duplicate email", func(t *testing.T) {
		accounts := newFakeAccounts(db.Account{ID: "x", Email: "ana@example.com"})
		_, err := NewAuthService(accounts, fakeSessions{}).Register(context.Background(), base)
		assert.ErrorIs(t, err, apperrors.ErrEmailTaken)
	})

	invalid := map[string]func(r *entities.RegisterRequest){
		"Missing email":        func(r *entities.RegisterRequest) { r.Email = "" },
		"Unknown role":         func(r *entities.RegisterRequest) { r.Role = "landlord" },
		"Owner without city":   func(r *entities.RegisterRequest) { r.City = "" },
		"Owner with bad size":  func(r *entities.RegisterRequest) { r.Size = "bus" },
		"Bad open mechanism":   func(r *entities.RegisterRequest) { r.OpenMechanism = "key" },
		"Renter with bad size": func(r *entities.RegisterRequest) { r.Role = string(db.RoleRenter); r.Size = "van" },
	}
	for name, mutate := range invalid {
		t.Run(name, func(t *testing.T) {
			req := base
			mutate(&req)
			_, err := NewAuthService(newFakeAccounts(), fakeSessions{}).Register(context.Background(), req)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}

	t.Run("Renter needs no listing", func(t *testing.T) {
		req := entities.RegisterRequest{
			FirstName: "Bob", LastName: "Martin", Email: "bob@example.com",
			Password: "pw", Role: string(db.RoleRenter),
		}
		resp, err := NewAuthService(newFakeAccounts(), fakeSessions{}).Register(context.Background(), req)
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccountID)
	})
}
