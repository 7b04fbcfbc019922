package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridelink/ride-hail-backend/internal/model"
	"github.com/ridelink/ride-hail-backend/internal/utils"
)

func runChain(mw echo.MiddlewareFunc, header string) (*httptest.ResponseRecorder, string) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seenUID string
	_ = mw(func(c echo.Context) error {
		seenUID = CurrentUserID(c)
		return c.NoContent(http.StatusOK)
	})(c)
	return rec, seenUID
}

func TestAccessAuth(t *testing.T) {
	svc := utils.NewTokenService("access-secret", "refresh-secret", 15, 7)
	pair, err := svc.Issue("user-1")
	require.NoError(t, err)

	mw := AccessAuth(svc)

	rec, uid := runChain(mw, "Bearer "+pair.AccessToken)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", uid)

	// a refresh token must not pass as a bearer credential
	rec, _ = runChain(mw, "Bearer "+pair.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = runChain(mw, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = runChain(mw, "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	lookup := func(_ context.Context, id string) (model.User, error) {
		switch id {
		case "admin-1":
			return model.User{ID: id, Role: model.RoleAdmin}, nil
		case "cust-1":
			return model.User{ID: id, Role: model.RoleCustomer}, nil
		}
		return model.User{}, errors.New("not found")
	}
	mw := RequireRole(lookup, model.RoleAdmin)

	run := func(uid string) *httptest.ResponseRecorder {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if uid != "" {
			c.Set(ContextUserID, uid)
		}
		_ = mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)
		return rec
	}

	assert.Equal(t, http.StatusOK, run("admin-1").Code)
	assert.Equal(t, http.StatusForbidden, run("cust-1").Code)
	assert.Equal(t, http.StatusForbidden, run("ghost").Code)
	assert.Equal(t, http.StatusUnauthorized, run("").Code)
}
