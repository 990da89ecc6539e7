package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/guregu/null.v4"

	"rentmyparking/internal/db"
	"rentmyparking/internal/entities"
	apperrors "rentmyparking/internal/errors"
	"rentmyparking/internal/utils"
)

// hashCost is lowered in tests.
var hashCost = bcrypt.DefaultCost

type AuthService struct {
	Accounts AccountStore
	Sessions SessionIssuer
}

func NewAuthService(accounts AccountStore, sessions SessionIssuer) *AuthService {
	return &AuthService{Accounts: accounts, Sessions: sessions}
}

// Login succeeds iff an account has exactly this email and the password
// matches its hash.
func (s *AuthService) Login(ctx context.Context, email, password string) (*entities.LoginResponse, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required: %w", apperrors.ErrInvalidInput)
	}

	account, err := s.Accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, fmt.Errorf("login %s: %w", email, apperrors.ErrInvalidCredential)
		}
		slog.Warn("stored password hash is unreadable", "account", account.ID, "error", err)
		return nil, fmt.Errorf("login %s: %w", email, apperrors.ErrInvalidCredential)
	}

	token, err := s.Sessions.IssueSession(account.ID)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	return &entities.LoginResponse{AccountID: account.ID, Token: token}, nil
}

func (s *AuthService) Register(ctx context.Context, req entities.RegisterRequest) (*entities.LoginResponse, error) {
	if err := validateRegistration(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &db.Account{
		ID:             uuid.NewString(),
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		Email:          req.Email,
		PasswordHash:   string(hash),
		Phone:          null.NewString(req.Phone, req.Phone != ""),
		Role:           db.Role(req.Role),
		ParkAddress:    req.ParkAddress,
		StreetNumber:   req.StreetNumber,
		City:           req.City,
		Size:           db.VehicleSize(req.Size),
		OpenMechanism:  db.OpenMechanism(req.OpenMechanism),
		ElectricCharge: utils.ChargeString(req.ElectricCharge),
		Note:           req.Note,
		Available:      true,
	}
	if err := s.Accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	slog.Info("account registered", "account", account.ID, "role", account.Role)

	token, err := s.Sessions.IssueSession(account.ID)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	return &entities.LoginResponse{AccountID: account.ID, Token: token}, nil
}

func validateRegistration(req entities.RegisterRequest) error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"first_name", req.FirstName},
		{"last_name", req.LastName},
		{"email", req.Email},
		{"password", req.Password},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s: %w", strings.Join(missing, ", "), apperrors.ErrInvalidInput)
	}

	role := db.Role(req.Role)
	if !role.Valid() {
		return fmt.Errorf("unknown role %q: %w", req.Role, apperrors.ErrInvalidInput)
	}
	if role.OffersListing() {
		if req.ParkAddress == "" || req.StreetNumber == "" || req.City == "" {
			return fmt.Errorf("a listing needs an address, street number and city: %w", apperrors.ErrInvalidInput)
		}
		if !db.VehicleSize(req.Size).Valid() {
			return fmt.Errorf("unknown size %q: %w", req.Size, apperrors.ErrInvalidInput)
		}
		if !db.OpenMechanism(req.OpenMechanism).Valid() {
			return fmt.Errorf("unknown open mechanism %q: %w", req.OpenMechanism, apperrors.ErrInvalidInput)
		}
		return nil
	}
	return validateOptionalEnums(req.Size, req.OpenMechanism)
}

func validateOptionalEnums(size, mechanism string) error {
	if size != "" && !db.VehicleSize(size).Valid() {
		return fmt.Errorf("unknown size %q: %w", size, apperrors.ErrInvalidInput)
	}
	if mechanism != "" && !db.OpenMechanism(mechanism).Valid() {
		return fmt.Errorf("unknown open mechanism %q: %w", mechanism, apperrors.ErrInvalidInput)
	}
	return nil
}
