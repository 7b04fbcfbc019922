package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/ridelink/ride-hail-backend/internal/model"
)

// UserRepo persists accounts in the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, email, password_hash, phone, role,
	first_name, middle_name, last_name, sex, school_id, license_id,
	status, disapproval_reason, approved, created_at, updated_at`

// ListFilter narrows the account listing.  Zero values mean "no filter".
// Search is matched case-insensitively as a substring across first name,
// last name, email and phone.
type ListFilter struct {
	Role     string
	Approved *bool
	Search   string
}

// Create inserts a new account.  A fresh uuid is assigned when the caller
// has not set one.  Unique-index violations are mapped to the sentinel
// duplicate errors; this is the authoritative duplicate guard, the
// existence checks in handlers are only a fast path.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, phone, role,
			first_name, middle_name, last_name, sex, school_id, license_id,
			status, disapproval_reason, approved)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		u.ID, u.Email, u.PasswordHash, nullable(u.Phone), u.Role,
		u.FirstName, nullable(u.MiddleName), u.LastName, nullable(u.Sex),
		nullable(u.SchoolID), nullable(u.LicenseID),
		u.Status, nullable(u.DisapprovalReason), u.Approved)
	return mapDuplicate(err)
}

// GetByID fetches an account by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return r.one(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

// GetByEmailAndRole fetches the account matching the exact (email, role)
// pair.  An existing email stored under a different role is reported as not
// found; login is role scoped and must not reveal the difference.
func (r *UserRepo) GetByEmailAndRole(ctx context.Context, email, role string) (model.User, error) {
	return r.one(ctx, "SELECT "+userColumns+" FROM users WHERE email=? AND role=? LIMIT 1", email, role)
}

// GetByPhone fetches an account by phone number.
func (r *UserRepo) GetByPhone(ctx context.Context, phone string) (model.User, error) {
	return r.one(ctx, "SELECT "+userColumns+" FROM users WHERE phone=? LIMIT 1", phone)
}

// EmailTaken reports whether another account (excluding excludeID, which may
// be empty) already uses the email.
func (r *UserRepo) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE email=? AND id<>?",
		email, excludeID).Scan(&n)
	return n > 0, err
}

// Update replaces the mutable columns of an account in a single write.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET email=?, password_hash=?, phone=?, role=?,
			first_name=?, middle_name=?, last_name=?, sex=?, school_id=?, license_id=?,
			status=?, disapproval_reason=?, approved=?
		 WHERE id=?`,
		u.Email, u.PasswordHash, nullable(u.Phone), u.Role,
		u.FirstName, nullable(u.MiddleName), u.LastName, nullable(u.Sex),
		nullable(u.SchoolID), nullable(u.LicenseID),
		u.Status, nullable(u.DisapprovalReason), u.Approved, u.ID)
	if err != nil {
		return mapDuplicate(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Zero rows can also mean a no-op write; confirm absence before
		// reporting not found.
		if _, err := r.GetByID(ctx, u.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes an account permanently.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// List returns accounts matching the filter, newest first.  Admin accounts
// are excluded unconditionally; the moderation surface never lists
// operators regardless of the requested filters.
func (r *UserRepo) List(ctx context.Context, f ListFilter) ([]model.User, error) {
	var (
		where = []string{"role <> ?"}
		args  = []any{model.RoleAdmin}
	)
	if f.Role != "" {
		where = append(where, "role = ?")
		args = append(args, f.Role)
	}
	if f.Approved != nil {
		where = append(where, "approved = ?")
		args = append(args, *f.Approved)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		where = append(where,
			"(LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(IFNULL(phone,'')) LIKE ?)")
		args = append(args, like, like, like, like)
	}
	query := "SELECT " + userColumns + " FROM users WHERE " +
		strings.Join(where, " AND ") + " ORDER BY created_at DESC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// one runs a single-row query and maps sql.ErrNoRows to ErrUserNotFound.
func (r *UserRepo) one(ctx context.Context, query string, args ...any) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

type rowScanner interface{ Scan(dest ...any) error }

func scanUser(s rowScanner) (model.User, error) {
	var u model.User
	var phone, middle, sex, school, lic, reason sql.NullString
	err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &phone, &u.Role,
		&u.FirstName, &middle, &u.LastName, &sex, &school, &lic,
		&u.Status, &reason, &u.Approved, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	u.Phone = phone.String
	u.MiddleName = middle.String
	u.Sex = sex.String
	u.SchoolID = school.String
	u.LicenseID = lic.String
	u.DisapprovalReason = reason.String
	return u, nil
}

// nullable converts "" to NULL so unique indexes on optional columns (phone)
// ignore unset values.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// mapDuplicate translates MySQL duplicate-key failures (error 1062) into
// the sentinel errors, using the violated index name to tell email and
// phone apart.
func mapDuplicate(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "1062") {
		return err
	}
	if strings.Contains(msg, "phone") {
		return ErrPhoneExists
	}
	return ErrEmailExists
}
