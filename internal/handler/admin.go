package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ridelink/ride-hail-backend/internal/model"
	"github.com/ridelink/ride-hail-backend/internal/queue"
	"github.com/ridelink/ride-hail-backend/internal/repository"
	"github.com/ridelink/ride-hail-backend/internal/utils"
)

// AdminHandler implements the moderation surface.  It never touches the
// token service; admin sessions come from the admin login endpoint.  Unlike
// the public auth flows, failures here carry the raw error message in the
// 500 body since the audience is operators, not the public.
type AdminHandler struct {
	Users UserStore
	// Publish is the optional account-event sink for moderation decisions.
	Publish func(ctx context.Context, ev queue.AccountEvent)
}

func NewAdminHandler(users UserStore) *AdminHandler {
	return &AdminHandler{Users: users}
}

// ListUsers handles GET /admin/users with optional role, approved and
// search query parameters.  Search matches a case-insensitive substring
// across first name, last name, email and phone.  Admin accounts never
// appear, whatever the filters say.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	f := repository.ListFilter{
		Role:   strings.TrimSpace(c.QueryParam("role")),
		Search: strings.TrimSpace(c.QueryParam("search")),
	}
	switch strings.ToLower(c.QueryParam("approved")) {
	case "true":
		t := true
		f.Approved = &t
	case "false":
		fa := false
		f.Approved = &fa
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.List(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(users), "users": users})
}

// GetUser handles GET /admin/users/:id.
func (h *AdminHandler) GetUser(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

// ApproveUser handles PATCH /admin/users/:id/approve.  Any current state
// may transition to approved; the legacy boolean is mirrored and a previous
// disapproval reason is cleared.
func (h *AdminHandler) ApproveUser(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	u.Status = model.StatusApproved
	u.Approved = true
	u.DisapprovalReason = ""
	if err := h.Users.Update(ctx, &u); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	h.publish(queue.AccountEvent{
		Type:   queue.EventAccountApproved,
		UserID: u.ID,
		Email:  u.Email,
		Phone:  u.Phone,
		Role:   u.Role,
		Status: u.Status,
	})
	return c.JSON(http.StatusOK, echo.Map{"message": "user approved", "user": u})
}

type disapproveReq struct {
	Reason string `json:"reason"`
}

// DisapproveUser handles PATCH /admin/users/:id/disapprove.  The reason is
// recorded with the account and defaults when omitted.
func (h *AdminHandler) DisapproveUser(c echo.Context) error {
	var req disapproveReq
	_ = c.Bind(&req)
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "No reason provided"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	u.Status = model.StatusDisapproved
	u.Approved = false
	u.DisapprovalReason = reason
	if err := h.Users.Update(ctx, &u); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	h.publish(queue.AccountEvent{
		Type:   queue.EventAccountDisapproved,
		UserID: u.ID,
		Email:  u.Email,
		Phone:  u.Phone,
		Role:   u.Role,
		Status: u.Status,
		Reason: reason,
	})
	return c.JSON(http.StatusOK, echo.Map{"message": "user disapproved", "user": u})
}

type adminUpdateReq struct {
	Email      string  `json:"email"`
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName"`
	Phone      string  `json:"phone"`
	MiddleName *string `json:"middleName"`
	SchoolID   *string `json:"schoolId"`
	LicenseID  *string `json:"licenseId"`
	Sex        *string `json:"sex"`
	Role       *string `json:"role"`
	Approved   *bool   `json:"approved"`
}

// UpdateUser handles PUT /admin/users/:id.  It is broader than self-update:
// role may move between customer and rider and the legacy approved boolean
// is directly settable.  Email changes re-check uniqueness excluding the
// target account.
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	var req adminUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Role != nil && !model.SelfServiceRole(*req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	if req.Role != nil {
		u.Role = *req.Role
	}
	if email := strings.TrimSpace(req.Email); email != "" && email != u.Email {
		taken, err := h.Users.EmailTaken(ctx, email, u.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
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
	if req.Approved != nil {
		// Legacy flag only; the status state machine moves solely through
		// the approve/disapprove endpoints.
		u.Approved = *req.Approved
	}

	if err := h.Users.Update(ctx, &u); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already in use"})
		case errors.Is(err, repository.ErrPhoneExists):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "phone already in use"})
		case errors.Is(err, repository.ErrUserNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user updated", "user": u})
}

// DeleteUser handles DELETE /admin/users/:id.  The removal is hard and
// irreversible.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Delete(ctx, c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user deleted"})
}

func (h *AdminHandler) publish(ev queue.AccountEvent) {
	if h.Publish == nil {
		return
	}
	ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	h.Publish(context.Background(), ev)
}
