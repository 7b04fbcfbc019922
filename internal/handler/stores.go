package handler

import (
	"context"
	"time"

	"github.com/ridelink/ride-hail-backend/internal/model"
	"github.com/ridelink/ride-hail-backend/internal/repository"
)

// UserStore is the credential-store contract the handlers depend on.  The
// MySQL implementation lives in internal/repository; tests substitute an
// in-memory fake.  All operations are atomic at single-record granularity.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (model.User, error)
	GetByEmailAndRole(ctx context.Context, email, role string) (model.User, error)
	GetByPhone(ctx context.Context, phone string) (model.User, error)
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	Update(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f repository.ListFilter) ([]model.User, error)
}

// RefreshTokenStore tracks issued refresh tokens by hash so rotation can
// revoke the presented token and replay fails server-side.
type RefreshTokenStore interface {
	Store(ctx context.Context, userID, tokenHash string, exp time.Time) error
	Validate(ctx context.Context, tokenHash string) (string, error)
	Revoke(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}
