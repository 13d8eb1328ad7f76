package auth

import (
	"context"
	"strings"

	"github.com/angelmondragon/garage-backend/internal/users"
	"github.com/angelmondragon/garage-backend/pkg/config"
	"github.com/angelmondragon/garage-backend/pkg/db"
	"github.com/angelmondragon/garage-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/garage-backend/pkg/errors"
	"github.com/angelmondragon/garage-backend/pkg/security"
	"gorm.io/gorm"
)

// RegisterService opens user accounts.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
	// RegisterAdmin opens an admin account. It is only reachable from operator tooling.
	RegisterAdmin(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	DB             *db.Client
	PasswordConfig config.PasswordConfig
}

type registerService struct {
	db          *db.Client
	passwordCfg config.PasswordConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	return &registerService{
		db:          params.DB,
		passwordCfg: params.PasswordConfig,
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	return s.register(ctx, req, enums.UserRoleStaff)
}

func (s *registerService) RegisterAdmin(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	return s.register(ctx, req, enums.UserRoleAdmin)
}

func (s *registerService) register(ctx context.Context, req RegisterRequest, role enums.UserRole) (*users.UserDTO, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username is required")
	}
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if problems := security.CheckPasswordPolicy(req.Password, username, email); len(problems) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password does not meet the policy").
			WithDetails(map[string]any{"password": problems})
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *users.UserDTO
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)

		taken, err := userRepo.UsernameTaken(ctx, username)
		if err != nil {
			return db.Classify(err, "db: check username")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, "username already registered")
		}
		taken, err = userRepo.EmailTaken(ctx, email)
		if err != nil {
			return db.Classify(err, "db: check email")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}

		user, err := userRepo.Create(ctx, users.CreateUserDTO{
			Username:     username,
			Email:        email,
			PasswordHash: passwordHash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Role:         role,
		})
		if err != nil {
			return db.Classify(err, "db: create user")
		}
		created = users.FromModel(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
