package user

import (
	"context"

	"pulsewatch/internals/security"
	"pulsewatch/pkg/apperror"

	"github.com/google/uuid"
)

type Repository interface {
	CreateUser(ctx context.Context, u User) (uuid.UUID, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

type TokenIssuer interface {
	GenerateAccessToken(payload security.RequestClaims) (string, error)
}

type Service struct {
	repo   Repository
	tokens TokenIssuer
}

func NewService(repo Repository, tokens TokenIssuer) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
	}
}

func (s *Service) Register(ctx context.Context, data CreateUserCmd) (uuid.UUID, error) {
	const op string = "service.user.register"

	passwordHash, err := security.HashPassword(data.Password)
	if err != nil {
		return uuid.Nil, apperror.New(apperror.Internal, op, err)
	}

	// the unique index on email reports duplicates
	return s.repo.CreateUser(ctx, User{
		Name:         data.Name,
		Email:        data.Email,
		PasswordHash: passwordHash,
	})
}

func (s *Service) LogIn(ctx context.Context, data LogInUserCmd) (LogInUserResult, error) {
	const op string = "service.user.login"

	invalid := &apperror.Error{
		Kind:    apperror.Unauthorised,
		Op:      op,
		Message: "invalid email or password",
	}

	u, err := s.repo.GetUserByEmail(ctx, data.Email)
	if err != nil {
		if apperror.IsKind(err, apperror.NotFound) {
			return LogInUserResult{}, invalid
		}
		return LogInUserResult{}, err
	}

	ok, err := security.ComparePassword(data.Password, u.PasswordHash)
	if err != nil {
		return LogInUserResult{}, apperror.New(apperror.Internal, op, err)
	}
	if !ok {
		return LogInUserResult{}, invalid
	}

	token, err := s.tokens.GenerateAccessToken(security.RequestClaims{
		UserID: u.ID.String(),
		Email:  u.Email,
	})
	if err != nil {
		return LogInUserResult{}, err
	}

	return LogInUserResult{UserID: u.ID, AccessToken: token}, nil
}

func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (User, error) {
	return s.repo.GetUserByID(ctx, userID)
}
