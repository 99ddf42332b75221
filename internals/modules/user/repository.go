package user

import (
	"context"
	"strings"
	"time"

	"pulsewatch/pkg/apperror"
	"pulsewatch/pkg/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type repository struct {
	pool   *pgxpool.Pool
	logger *zerolog.Logger
}

func NewRepository(pool *pgxpool.Pool, logger *zerolog.Logger) *repository {
	return &repository{
		pool:   pool,
		logger: logger,
	}
}

func (r *repository) CreateUser(ctx context.Context, u User) (uuid.UUID, error) {
	const op string = "repo.user.create_user"

	var id pgtype.UUID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, name, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		utils.ToPgUUID(uuid.New()), u.Name, strings.ToLower(u.Email), u.PasswordHash,
	).Scan(&id)
	if err == nil {
		return utils.FromPgUUID(id), nil
	}

	wrapped := utils.WrapRepoError(op, err, false, r.logger)
	if apperror.IsKind(wrapped, apperror.AlreadyExists) {
		return uuid.Nil, &apperror.Error{
			Kind:    apperror.AlreadyExists,
			Op:      op,
			Message: "user already exists",
		}
	}
	return uuid.Nil, wrapped
}

func (r *repository) GetUserByID(ctx context.Context, userID uuid.UUID) (User, error) {
	const op string = "repo.user.get_user_by_id"

	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE id = $1`,
		utils.ToPgUUID(userID),
	))
	if err != nil {
		return User{}, utils.WrapRepoError(op, err, true, r.logger)
	}
	return u, nil
}

func (r *repository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const op string = "repo.user.get_user_by_email"

	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE email = $1`,
		strings.ToLower(email),
	))
	if err != nil {
		return User{}, utils.WrapRepoError(op, err, true, r.logger)
	}
	return u, nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		id        pgtype.UUID
		u         User
		createdAt time.Time
	)
	if err := row.Scan(&id, &u.Name, &u.Email, &u.PasswordHash, &createdAt); err != nil {
		return User{}, err
	}
	u.ID = utils.FromPgUUID(id)
	u.CreatedAt = createdAt
	return u, nil
}
