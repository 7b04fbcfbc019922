package handler

import (
	"context"  // context with cancellation for DB calls
	"errors"   // sentinel comparisons
	"net/http" // HTTP status codes
	"strings"  // input normalization
	"time"     // timeouts and event timestamps

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/ridelink/ride-hail-backend/internal/middleware" // identity extraction from context
	"github.com/ridelink/ride-hail-backend/internal/model"      // account entity and role/status sets
	"github.com/ridelink/ride-hail-backend/internal/queue"      // account lifecycle events
	"github.com/ridelink/ride-hail-backend/internal/repository" // sentinel errors
	"github.com/ridelink/ride-hail-backend/internal/utils"      // tokens, hashing, licence rule
)

// invalidCredentials is the single message returned for both "no such
// account" and "wrong password".  Collapsing the two keeps account
// existence unguessable from the login endpoint.
const invalidCredentials = "invalid credentials"

// AuthHandler bundles dependencies for the authentication endpoints.
type AuthHandler struct {
	Users      UserStore
	Tokens     RefreshTokenStore
	JWT        *utils.TokenService
	BcryptCost int
	// Publish is the optional account-event sink.  Nil disables publishing;
	// the real publisher is wired in main.
	Publish func(ctx context.Context, ev queue.AccountEvent)
}

func NewAuthHandler(users UserStore, tokens RefreshTokenStore, jwt *utils.TokenService, bcryptCost int) *AuthHandler {
	return &AuthHandler{Users: users, Tokens: tokens, JWT: jwt, BcryptCost: bcryptCost}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type registerReq struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	Phone      string `json:"phone"`
	FirstName  string `json:"firstName"`
	MiddleName string `json:"middleName"`
	LastName   string `json:"lastName"`
	Sex        string `json:"sex"`
	SchoolID   string `json:"schoolId"`
	LicenseID  string `json:"licenseId"`
}

type phoneAuthReq struct {
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type adminLoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResp struct {
	User         model.User `json:"user"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
}

// Root answers GET /auth/ so clients and probes can confirm the service is
// reachable.
func (h *AuthHandler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"message": "auth service is running"})
}

// Login authenticates an (email, role) pair.  Lookup is role scoped: the
// same email stored under a different role counts as not found, and both
// absence and password mismatch produce the identical generic response.
// Non-admin accounts then pass the approval gate before any token is
// issued.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Role = strings.TrimSpace(req.Role)
	if req.Email == "" || req.Password == "" || req.Role == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email, password and role are required"})
	}
	if !model.KnownRole(req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmailAndRole(ctx, req.Email, req.Role)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": invalidCredentials})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": invalidCredentials})
	}
	if blocked, resp := approvalGate(c, u); blocked {
		return resp
	}

	pair, err := h.issuePair(ctx, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, authResp{User: u, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// Register creates a pending customer or rider account.  Tokens are issued
// immediately so the client can hold a session while approval is pending;
// the response flags that gated endpoints will still refuse the account.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Role = strings.TrimSpace(req.Role)
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}
	if !model.SelfServiceRole(req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}

	lic := ""
	if req.Role == model.RoleRider && req.LicenseID != "" {
		var err error
		if lic, err = utils.NormalizeLicenseID(req.LicenseID); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Fast-path duplicate check; the unique index remains the authoritative
	// guard under concurrent registration.
	if taken, err := h.Users.EmailTaken(ctx, req.Email, ""); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	} else if taken {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already in use"})
	}

	hash, err := utils.HashPassword(req.Password, h.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash password failed"})
	}
	u := model.User{
		Email:        req.Email,
		PasswordHash: hash,
		Phone:        strings.TrimSpace(req.Phone),
		Role:         req.Role,
		FirstName:    req.FirstName,
		MiddleName:   req.MiddleName,
		LastName:     req.LastName,
		Sex:          req.Sex,
		SchoolID:     req.SchoolID,
		LicenseID:    lic,
		Status:       model.StatusPending,
	}
	if err := h.Users.Create(ctx, &u); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already in use"})
		case errors.Is(err, repository.ErrPhoneExists):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "phone already in use"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	pair, err := h.issuePair(ctx, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	h.publish(queue.AccountEvent{
		Type:   queue.EventAccountRegistered,
		UserID: u.ID,
		Email:  u.Email,
		Phone:  u.Phone,
		Role:   u.Role,
		Status: u.Status,
	})
	return c.JSON(http.StatusCreated, echo.Map{
		"user":          u,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"isApproved":    false,
		"status":        model.StatusPending,
	})
}

// PhoneAuth is the legacy phone-only path.  An existing account goes
// through the approval gate and receives tokens; a brand-new phone creates
// a pending account with a placeholder email and a throwaway password, and
// the reply exposes nothing beyond id, phone and role.
func (h *AuthHandler) PhoneAuth(c echo.Context) error {
	var req phoneAuthReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Phone = strings.TrimSpace(req.Phone)
	req.Role = strings.TrimSpace(req.Role)
	if req.Phone == "" || req.Role == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "phone and role are required"})
	}
	if !model.SelfServiceRole(req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByPhone(ctx, req.Phone)
	switch {
	case err == nil:
		if u.Role != req.Role {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "role mismatch"})
		}
		if blocked, resp := approvalGate(c, u); blocked {
			return resp
		}
		pair, err := h.issuePair(ctx, u.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
		}
		return c.JSON(http.StatusOK, authResp{User: u, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
	case errors.Is(err, repository.ErrUserNotFound):
		// fall through to first-contact creation
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	pw, err := utils.RandomPassword()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	hash, err := utils.HashPassword(pw, h.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	u = model.User{
		// The placeholder email keeps the unique index satisfied; it is not
		// routable and never intended for login.
		Email:        req.Phone + "@phone.invalid",
		PasswordHash: hash,
		Phone:        req.Phone,
		Role:         req.Role,
		Status:       model.StatusPending,
	}
	if err := h.Users.Create(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrPhoneExists) || errors.Is(err, repository.ErrEmailExists) {
			// Lost a creation race; the retry will find the account.
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "phone already in use"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	h.publish(queue.AccountEvent{
		Type:   queue.EventAccountRegistered,
		UserID: u.ID,
		Phone:  u.Phone,
		Role:   u.Role,
		Status: u.Status,
	})
	// No tokens on first contact: only non-sensitive identity fields.
	return c.JSON(http.StatusForbidden, echo.Map{
		"message":    "account created, awaiting approval",
		"status":     model.StatusPending,
		"isApproved": false,
		"user": echo.Map{
			"id":    u.ID,
			"phone": u.Phone,
			"role":  u.Role,
		},
	})
}

// Refresh exchanges a refresh token for a brand-new access/refresh pair.
// The presented token is revoked, so each refresh token works exactly once.
// Signature failure, expiry, revocation, an unknown account: all collapse
// into one response.  The approval gate is not re-evaluated here; it runs
// again at next login.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	raw := strings.TrimSpace(req.RefreshToken)

	uid, err := h.JWT.VerifyRefresh(raw)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hash := utils.HashRefreshRaw(raw)
	storedUID, err := h.Tokens.Validate(ctx, hash)
	if err != nil || storedUID != uid {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}
	if _, err := h.Users.GetByID(ctx, uid); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}
	_ = h.Tokens.Revoke(ctx, hash)

	pair, err := h.issuePair(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

// Profile returns the authenticated account, password hash excluded.
func (h *AuthHandler) Profile(c echo.Context) error {
	uid := middleware.CurrentUserID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

type updateProfileReq struct {
	Email      string  `json:"email"`
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName"`
	Phone      string  `json:"phone"`
	MiddleName *string `json:"middleName"`
	SchoolID   *string `json:"schoolId"`
	LicenseID  *string `json:"licenseId"`
	Sex        *string `json:"sex"`
}

// UpdateProfile applies a partial self-service update.  The two field
// groups intentionally behave differently: firstName/lastName/phone/email
// are skipped when empty, while middleName/schoolId/licenseId/sex apply
// whenever the key is present in the body, so a client can clear them with
// an explicit empty value.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	uid := middleware.CurrentUserID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	if email := strings.TrimSpace(req.Email); email != "" && email != u.Email {
		taken, err := h.Users.EmailTaken(ctx, email, u.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		if taken {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already in use"})
		}
		u.Email = email
	}
	if req.FirstName != "" {
		u.FirstName = req.FirstName
	}
	if req.LastName != "" {
		u.LastName = req.LastName
	}
	if p := strings.TrimSpace(req.Phone); p != "" {
		u.Phone = p
	}
	if req.MiddleName != nil {
		u.MiddleName = *req.MiddleName
	}
	if req.SchoolID != nil {
		u.SchoolID = *req.SchoolID
	}
	if req.Sex != nil {
		u.Sex = *req.Sex
	}
	if req.LicenseID != nil {
		if u.Role == model.RoleRider {
			lic, err := utils.NormalizeLicenseID(*req.LicenseID)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
			}
			u.LicenseID = lic
		} else {
			u.LicenseID = *req.LicenseID
		}
	}

	if err := h.Users.Update(ctx, &u); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already in use"})
		case errors.Is(err, repository.ErrPhoneExists):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "phone already in use"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "profile updated", "user": u})
}

// AdminLogin authenticates operators.  It is role-locked to admin and skips
// the approval gate: an admin with any status gets tokens on valid
// credentials.
func (h *AuthHandler) AdminLogin(c echo.Context) error {
	var req adminLoginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmailAndRole(ctx, req.Email, model.RoleAdmin)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": invalidCredentials})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": invalidCredentials})
	}

	pair, err := h.issuePair(ctx, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, authResp{User: u, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// Logout revokes refresh tokens.  With a bearer access token and no body it
// revokes every session of the caller; with a refresh_token in the body it
// revokes that single session.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if refreshToken != "" {
		hash := utils.HashRefreshRaw(refreshToken)
		if _, err := h.Tokens.Validate(ctx, hash); err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		if err := h.Tokens.Revoke(ctx, hash); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
		return c.NoContent(http.StatusNoContent)
	}

	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		uid, err := h.JWT.VerifyAccess(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide Authorization header or refresh_token"})
}

// issuePair signs a fresh token pair and records the refresh hash.
func (h *AuthHandler) issuePair(ctx context.Context, userID string) (utils.TokenPair, error) {
	pair, err := h.JWT.Issue(userID)
	if err != nil {
		return utils.TokenPair{}, err
	}
	if err := h.Tokens.Store(ctx, userID, utils.HashRefreshRaw(pair.RefreshToken), pair.RefreshExp); err != nil {
		return utils.TokenPair{}, err
	}
	return pair, nil
}

// publish forwards an account event to the configured sink, if any.
func (h *AuthHandler) publish(ev queue.AccountEvent) {
	if h.Publish == nil {
		return
	}
	ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	h.Publish(context.Background(), ev)
}

// approvalGate applies the approval gate after credentials have been
// verified.  When blocked is true the response has already been written and
// must be returned as-is.  Admins bypass the gate.  Pending and disapproved
// produce structured 403 payloads rather than the generic credential
// failure, since the caller needs guidance, not a bare denial.
func approvalGate(c echo.Context, u model.User) (blocked bool, resp error) {
	if u.Role == model.RoleAdmin || u.Status == model.StatusApproved {
		return false, nil
	}
	if u.Status == model.StatusDisapproved {
		return true, c.JSON(http.StatusForbidden, echo.Map{
			"message":    "account disapproved",
			"status":     model.StatusDisapproved,
			"isApproved": false,
			"reason":     u.DisapprovalReason,
		})
	}
	return true, c.JSON(http.StatusForbidden, echo.Map{
		"message":    "account pending approval",
		"status":     model.StatusPending,
		"isApproved": false,
	})
}
