package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridelink/ride-hail-backend/internal/model"
	"github.com/ridelink/ride-hail-backend/internal/utils"
)

type adminFixture struct {
	e     *echo.Echo
	users *memUsers
	h     *AdminHandler
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	users := newMemUsers()
	return &adminFixture{e: echo.New(), users: users, h: NewAdminHandler(users)}
}

func (f *adminFixture) seed(t *testing.T, u model.User) model.User {
	t.Helper()
	hash, err := utils.HashPassword("p1", testBcryptCost)
	require.NoError(t, err)
	u.PasswordHash = hash
	require.NoError(t, f.users.Create(context.Background(), &u))
	return u
}

// requestWithID builds a context carrying the :id route parameter.
func (f *adminFixture) requestWithID(method, id, body string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, "/", nil)
	} else {
		req = httptest.NewRequest(method, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := f.e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c, rec
}

func (f *adminFixture) list(t *testing.T, query string) (int, []map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/admin/users"+query, nil)
	rec := httptest.NewRecorder()
	c := f.e.NewContext(req, rec)
	require.NoError(t, f.h.ListUsers(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count int              `json:"count"`
		Users []map[string]any `json:"users"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Count, body.Users
}

func (f *adminFixture) seedRoster(t *testing.T) {
	t.Helper()
	f.seed(t, model.User{Email: "old@x.com", Role: model.RoleCustomer, Status: model.StatusApproved, Approved: true, FirstName: "Oldest", LastName: "Entry"})
	f.seed(t, model.User{Email: "rider@x.com", Role: model.RoleRider, Status: model.StatusPending, FirstName: "Maria", LastName: "Santos", Phone: "+639170000001"})
	f.seed(t, model.User{Email: "ops@x.com", Role: model.RoleAdmin, Status: model.StatusApproved, Approved: true, FirstName: "Root", LastName: "Operator"})
	f.seed(t, model.User{Email: "new@x.com", Role: model.RoleCustomer, Status: model.StatusDisapproved, FirstName: "Jose", LastName: "Maria"})
}

func TestListUsersExcludesAdmins(t *testing.T) {
	f := newAdminFixture(t)
	f.seedRoster(t)

	queries := []string{"", "?role=admin", "?approved=true", "?approved=false", "?search=o", "?role=customer&search=maria"}
	for _, q := range queries {
		_, users := f.list(t, q)
		for _, u := range users {
			assert.NotEqual(t, model.RoleAdmin, u["role"], "query %q leaked an admin", q)
		}
	}
}

func TestListUsersNewestFirst(t *testing.T) {
	f := newAdminFixture(t)
	f.seedRoster(t)

	count, users := f.list(t, "")
	require.Equal(t, 3, count)
	require.Len(t, users, 3)
	assert.Equal(t, "new@x.com", users[0]["email"])
	assert.Equal(t, "old@x.com", users[2]["email"])
}

func TestListUsersFilters(t *testing.T) {
	f := newAdminFixture(t)
	f.seedRoster(t)

	count, users := f.list(t, "?role=rider")
	require.Equal(t, 1, count)
	assert.Equal(t, "rider@x.com", users[0]["email"])

	count, _ = f.list(t, "?approved=true")
	assert.Equal(t, 1, count)

	count, _ = f.list(t, "?approved=false")
	assert.Equal(t, 2, count)
}

func TestListUsersSearchIsCaseInsensitiveAcrossFields(t *testing.T) {
	f := newAdminFixture(t)
	f.seedRoster(t)

	// matches Maria Santos (first name) and Jose Maria (last name)
	count, _ := f.list(t, "?search=MARIA")
	assert.Equal(t, 2, count)

	// email substring
	count, users := f.list(t, "?search=rider@")
	require.Equal(t, 1, count)
	assert.Equal(t, "rider@x.com", users[0]["email"])

	// phone substring
	count, _ = f.list(t, "?search=63917")
	assert.Equal(t, 1, count)
}

func TestListUsersNeverReturnsPasswordHash(t *testing.T) {
	f := newAdminFixture(t)
	f.seedRoster(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, f.h.ListUsers(f.e.NewContext(req, rec)))
	assert.NotContains(t, rec.Body.String(), "$2a$")
}

func TestGetUser(t *testing.T) {
	f := newAdminFixture(t)
	u := f.seed(t, model.User{Email: "a@x.com", Role: model.RoleCustomer, Status: model.StatusPending})

	c, rec := f.requestWithID(http.MethodGet, u.ID, "")
	require.NoError(t, f.h.GetUser(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = f.requestWithID(http.MethodGet, "missing", "")
	require.NoError(t, f.h.GetUser(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApproveUserFromAnyState(t *testing.T) {
	f := newAdminFixture(t)
	pending := f.seed(t, model.User{Email: "p@x.com", Role: model.RoleRider, Status: model.StatusPending})
	disapproved := f.seed(t, model.User{Email: "d@x.com", Role: model.RoleRider, Status: model.StatusDisapproved, DisapprovalReason: "incomplete"})

	for _, id := range []string{pending.ID, disapproved.ID} {
		c, rec := f.requestWithID(http.MethodPatch, id, "")
		require.NoError(t, f.h.ApproveUser(c))
		require.Equal(t, http.StatusOK, rec.Code)

		stored, err := f.users.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, model.StatusApproved, stored.Status)
		assert.True(t, stored.Approved)
		assert.Empty(t, stored.DisapprovalReason)
	}

	c, rec := f.requestWithID(http.MethodPatch, "missing", "")
	require.NoError(t, f.h.ApproveUser(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDisapproveUser(t *testing.T) {
	f := newAdminFixture(t)
	approved := f.seed(t, model.User{Email: "a@x.com", Role: model.RoleRider, Status: model.StatusApproved, Approved: true})

	c, rec := f.requestWithID(http.MethodPatch, approved.ID, `{"reason":"expired license"}`)
	require.NoError(t, f.h.DisapproveUser(c))
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := f.users.GetByID(context.Background(), approved.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDisapproved, stored.Status)
	assert.False(t, stored.Approved)
	assert.Equal(t, "expired license", stored.DisapprovalReason)
}

func TestDisapproveUserDefaultReason(t *testing.T) {
	f := newAdminFixture(t)
	u := f.seed(t, model.User{Email: "a@x.com", Role: model.RoleRider, Status: model.StatusPending})

	c, rec := f.requestWithID(http.MethodPatch, u.ID, "")
	require.NoError(t, f.h.DisapproveUser(c))
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := f.users.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "No reason provided", stored.DisapprovalReason)
}

func TestAdminUpdateUser(t *testing.T) {
	f := newAdminFixture(t)
	u := f.seed(t, model.User{Email: "a@x.com", Role: model.RoleCustomer, Status: model.StatusApproved})
	f.seed(t, model.User{Email: "b@x.com", Role: model.RoleCustomer, Status: model.StatusApproved})

	// role change customer -> rider plus legacy approved flag
	c, rec := f.requestWithID(http.MethodPut, u.ID, `{"role":"rider","approved":true,"licenseId":" xy99 "}`)
	require.NoError(t, f.h.UpdateUser(c))
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := f.users.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleRider, stored.Role)
	assert.True(t, stored.Approved)
	assert.Equal(t, "XY99", stored.LicenseID)
	// the status state machine is untouched by a plain update
	assert.Equal(t, model.StatusApproved, stored.Status)

	// role may not become admin
	c, rec = f.requestWithID(http.MethodPut, u.ID, `{"role":"admin"}`)
	require.NoError(t, f.h.UpdateUser(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// email conflict with another account
	c, rec = f.requestWithID(http.MethodPut, u.ID, `{"email":"b@x.com"}`)
	require.NoError(t, f.h.UpdateUser(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = f.requestWithID(http.MethodPut, "missing", `{"firstName":"X"}`)
	require.NoError(t, f.h.UpdateUser(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteUser(t *testing.T) {
	f := newAdminFixture(t)
	u := f.seed(t, model.User{Email: "a@x.com", Role: model.RoleCustomer, Status: model.StatusApproved})

	c, rec := f.requestWithID(http.MethodDelete, u.ID, "")
	require.NoError(t, f.h.DeleteUser(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// removal is hard: a second delete is a 404
	c, rec = f.requestWithID(http.MethodDelete, u.ID, "")
	require.NoError(t, f.h.DeleteUser(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
