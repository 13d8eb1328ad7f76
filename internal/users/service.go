package users

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/angelmondragon/garage-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/garage-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Availability answers which of the requested identifiers are already registered. Fields
// that were not asked about stay nil.
type Availability struct {
	UsernameTaken *bool `json:"username_taken,omitempty"`
	EmailTaken    *bool `json:"email_taken,omitempty"`
}

// UpdateProfileInput carries optional profile changes.
type UpdateProfileInput struct {
	Bio      *string
	ImageURL *string
}

// Service serves the signed-in user's account and profile.
type Service interface {
	Me(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	CheckAvailability(ctx context.Context, username, email *string) (*Availability, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*ProfileDTO, error)
}

type service struct {
	repo *Repository
}

// NewService constructs the users service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	return FromModel(user), nil
}

func (s *service) CheckAvailability(ctx context.Context, username, email *string) (*Availability, error) {
	if username == nil && email == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username or email is required")
	}
	out := &Availability{}
	if username != nil {
		taken, err := s.repo.UsernameTaken(ctx, *username)
		if err != nil {
			return nil, db.Classify(err, "db: check username")
		}
		out.UsernameTaken = &taken
	}
	if email != nil {
		taken, err := s.repo.EmailTaken(ctx, *email)
		if err != nil {
			return nil, db.Classify(err, "db: check email")
		}
		out.EmailTaken = &taken
	}
	return out, nil
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	return ProfileFromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*ProfileDTO, error) {
	fields := map[string]any{"updated_at": db.Now()}
	if input.Bio != nil {
		fields["bio"] = strings.TrimSpace(*input.Bio)
	}
	if input.ImageURL != nil {
		raw := strings.TrimSpace(*input.ImageURL)
		if raw == "" {
			fields["image_url"] = nil
		} else {
			parsed, err := url.Parse(raw)
			if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "image_url must be an http(s) URL")
			}
			fields["image_url"] = raw
		}
	}
	if _, err := s.repo.FindByID(ctx, userID); err != nil {
		return nil, mapErr(err)
	}
	if err := s.repo.UpdateProfile(ctx, userID, fields); err != nil {
		return nil, db.Classify(err, "db: update profile")
	}
	return s.GetProfile(ctx, userID)
}

func mapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return db.Classify(err, "db: load user")
}
