package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sakashimaa/marketplace/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// User is a local projection of the identity provider's account record, kept
// only so outbound email has a recipient address.
type User struct {
	ID    int64  `db:"id"`
	Email string `db:"email"`
}

type UserRepository interface {
	Save(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
}

type userRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewUserRepository(pool *pgxpool.Pool, logger *zap.Logger) UserRepository {
	return &userRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("contract/user_repo"),
	}
}

func (r *userRepo) Save(ctx context.Context, user *User) error {
	ctx, span := r.tracer.Start(ctx, "UserRepository.Save")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", user.ID),
	)

	query := `
		INSERT INTO users (id, email)
		VALUES ($1, $2)
	`

	_, err := r.pool.Exec(ctx, query, user.ID, user.Email)
	if err != nil {
		var pgError *pgconn.PgError
		if errors.As(err, &pgError) && pgError.Code == "23505" {
			mylogger.Warn(
				ctx,
				r.logger,
				"User already exists, skipping",
				zap.Int64("user_id", user.ID),
			)

			return nil
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error inserting into users",
			zap.Int64("user_id", user.ID),
			zap.Error(err),
		)

		return err
	}

	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*User, error) {
	ctx, span := r.tracer.Start(ctx, "UserRepository.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user_id", id),
	)

	query := `
		SELECT id, email
		FROM users
		WHERE id = $1;
	`

	var res User
	if err := r.pool.QueryRow(ctx, query, id).Scan(&res.ID, &res.Email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}

		span.RecordError(err)

		return nil, fmt.Errorf("error getting user: %w", err)
	}

	return &res, nil
}
