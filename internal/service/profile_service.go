package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/guregu/null.v4"

	"rentmyparking/internal/db"
	"rentmyparking/internal/entities"
	apperrors "rentmyparking/internal/errors"
	"rentmyparking/internal/repository"
	"rentmyparking/internal/subscription"
	"rentmyparking/internal/utils"
)

const (
	noChangesMessage = "No changes detected."
	updatedMessage   = "Profile updated."
)

type ProfileService struct {
	Accounts AccountStore
	Changes  subscription.Publisher
}

func NewProfileService(accounts AccountStore, changes subscription.Publisher) *ProfileService {
	return &ProfileService{Accounts: accounts, Changes: changes}
}

func (s *ProfileService) Load(ctx context.Context, accountID string) (*entities.Profile, error) {
	a, err := s.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	p := toProfile(*a)
	return &p, nil
}

// Update writes only the fields that differ from the stored account. A
// blank password keeps the current one.
func (s *ProfileService) Update(ctx context.Context, accountID string, form entities.ProfileForm) (*entities.ProfileUpdateResult, error) {
	if !db.Role(form.Role).Valid() {
		return nil, fmt.Errorf("unknown role %q: %w", form.Role, apperrors.ErrInvalidInput)
	}
	if err := validateOptionalEnums(form.Size, form.OpenMechanism); err != nil {
		return nil, err
	}

	current, err := s.Accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	fields, changed, err := diffProfile(*current, form)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return &entities.ProfileUpdateResult{Changed: []string{}, NoChanges: true, Message: noChangesMessage}, nil
	}

	if err := s.Accounts.UpdateFields(ctx, accountID, fields); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update profile: %v: %w", err, apperrors.ErrWriteFailed)
	}
	slog.Info("profile updated", "account", accountID, "fields", changed)

	if s.Changes != nil {
		s.Changes.Publish(context.WithoutCancel(ctx), accountID)
	}
	return &entities.ProfileUpdateResult{Changed: changed, Message: updatedMessage}, nil
}

// diffProfile returns the column assignments for every changed field and
// the user-facing names of those fields.
func diffProfile(current db.Account, form entities.ProfileForm) ([]repository.Field, []string, error) {
	var fields []repository.Field
	var changed []string
	add := func(name, column string, value interface{}) {
		fields = append(fields, repository.Field{Column: column, Value: value})
		changed = append(changed, name)
	}

	for _, f := range []struct {
		column         string
		current, value string
	}{
		{"first_name", current.FirstName, form.FirstName},
		{"last_name", current.LastName, form.LastName},
		{"role", string(current.Role), form.Role},
		{"park_address", current.ParkAddress, form.ParkAddress},
		{"street_number", current.StreetNumber, form.StreetNumber},
		{"city", current.City, form.City},
		{"size", string(current.Size), form.Size},
		{"open_mechanism", string(current.OpenMechanism), form.OpenMechanism},
		{"electric_charge", current.ElectricCharge, utils.ChargeString(form.ElectricCharge)},
		{"note", current.Note, form.Note},
	} {
		if f.current != f.value {
			add(f.column, f.column, f.value)
		}
	}

	if current.Phone.String != form.Phone {
		add("phone", "phone", null.NewString(form.Phone, form.Phone != ""))
	}

	if form.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), hashCost)
		if err != nil {
			return nil, nil, fmt.Errorf("hash password: %w", err)
		}
		add("password", "password_hash", string(hash))
	}
	return fields, changed, nil
}

func toProfile(a db.Account) entities.Profile {
	return entities.Profile{
		ID:             a.ID,
		FirstName:      a.FirstName,
		LastName:       a.LastName,
		Email:          a.Email,
		Phone:          a.Phone.String,
		Role:           string(a.Role),
		ParkAddress:    a.ParkAddress,
		StreetNumber:   a.StreetNumber,
		City:           a.City,
		Size:           string(a.Size),
		OpenMechanism:  string(a.OpenMechanism),
		ElectricCharge: a.HasCharge(),
		Note:           a.Note,
		Available:      a.Available,
	}
}
