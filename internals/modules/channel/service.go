package channel

import (
	"context"
	"net/url"
	"strings"

	"pulsewatch/pkg/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, cmd CreateChannelCmd) (Channel, error)
	Get(ctx context.Context, userID, channelID uuid.UUID) (Channel, error)
	List(ctx context.Context, userID uuid.UUID) ([]Channel, error)
	Update(ctx context.Context, userID, channelID uuid.UUID, cmd UpdateChannelCmd) (Channel, error)
	Delete(ctx context.Context, userID, channelID uuid.UUID) error
}

type Service struct {
	repo      Repository
	validator *validator.Validate
}

func NewService(repo Repository, validator *validator.Validate) *Service {
	return &Service{
		repo:      repo,
		validator: validator,
	}
}

func (s *Service) Create(ctx context.Context, cmd CreateChannelCmd) (Channel, error) {
	const op string = "service.channel.create"

	cmd.Destination = strings.TrimSpace(cmd.Destination)
	if err := ValidateDestination(s.validator, op, cmd.Type, cmd.Destination); err != nil {
		return Channel{}, err
	}
	return s.repo.Create(ctx, cmd)
}

func (s *Service) Get(ctx context.Context, userID, channelID uuid.UUID) (Channel, error) {
	return s.repo.Get(ctx, userID, channelID)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Channel, error) {
	return s.repo.List(ctx, userID)
}

// Update changes the destination or flips the enabled flag. The flag only
// gates future deliveries.
func (s *Service) Update(ctx context.Context, userID, channelID uuid.UUID, cmd UpdateChannelCmd) (Channel, error) {
	const op string = "service.channel.update"

	if cmd.Destination == nil && cmd.Enabled == nil {
		return Channel{}, apperror.Invalid(op, "at least one of destination or enabled is required")
	}

	if cmd.Destination != nil {
		current, err := s.repo.Get(ctx, userID, channelID)
		if err != nil {
			return Channel{}, err
		}
		dest := strings.TrimSpace(*cmd.Destination)
		if err := ValidateDestination(s.validator, op, current.Type, dest); err != nil {
			return Channel{}, err
		}
		cmd.Destination = &dest
	}

	return s.repo.Update(ctx, userID, channelID, cmd)
}

func (s *Service) Delete(ctx context.Context, userID, channelID uuid.UUID) error {
	return s.repo.Delete(ctx, userID, channelID)
}

// ValidateDestination checks that dest is addressable by the channel type:
// an email address, an E.164 phone number or a Slack https webhook URL.
func ValidateDestination(v *validator.Validate, op string, t Type, dest string) error {
	switch t {
	case TypeEmail:
		if v.Var(dest, "required,email") != nil {
			return apperror.Invalid(op, "destination must be a valid email address")
		}
	case TypeSMS, TypeCall:
		if v.Var(dest, "required,e164") != nil {
			return apperror.Invalid(op, "destination must be an E.164 phone number, e.g. +14155550123")
		}
	case TypeSlack:
		u, err := url.Parse(dest)
		if err != nil || v.Var(dest, "required,http_url") != nil || u.Scheme != "https" {
			return apperror.Invalid(op, "destination must be an https Slack webhook URL")
		}
	default:
		return apperror.Invalid(op, "type must be one of [email sms call slack]")
	}
	return nil
}
