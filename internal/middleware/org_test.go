package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"saaskit/internal/model"
)

type fakeOrgResolver struct {
	orgs map[string]*model.Organization
}

func (f *fakeOrgResolver) FindBySlug(slug string) (*model.Organization, error) {
	return f.orgs[slug], nil
}

type fakeMembershipResolver struct {
	memberships map[[2]uint]*model.Membership
}

func (f *fakeMembershipResolver) FindActive(userID, orgID uint) (*model.Membership, error) {
	return f.memberships[[2]uint{userID, orgID}], nil
}

// asUser simulates a request that already passed the auth middleware
func asUser(userID uint) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", userID)
			return next(c)
		}
	}
}

func newOrgTestServer(orgs OrgResolver, members MembershipResolver, minRole string) *echo.Echo {
	e := echo.New()
	handlers := []echo.MiddlewareFunc{asUser(1), OrgScope(orgs, members)}
	if minRole != "" {
		handlers = append(handlers, RequireRole(minRole))
	}
	e.GET("/api/orgs/:slug/resource", func(c echo.Context) error {
		role, _ := c.Get("role").(string)
		return c.JSON(http.StatusOK, echo.Map{"role": role})
	}, handlers...)
	return e
}

func fixtures() (*fakeOrgResolver, *fakeMembershipResolver) {
	orgs := &fakeOrgResolver{orgs: map[string]*model.Organization{
		"acme":   {ID: 10, Name: "Acme", Slug: "acme", Status: model.OrgStatusActive},
		"closed": {ID: 11, Name: "Closed", Slug: "closed", Status: model.OrgStatusInactive},
	}}
	members := &fakeMembershipResolver{memberships: map[[2]uint]*model.Membership{
		{1, 10}: {ID: 100, UserID: 1, OrganizationID: 10, Role: model.RoleTechnician, Status: model.MembershipStatusActive},
	}}
	return orgs, members
}

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestOrgScopeUnknownSlug(t *testing.T) {
	orgs, members := fixtures()
	e := newOrgTestServer(orgs, members, "")

	rec := get(e, "/api/orgs/nope/resource")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ORG_NOT_FOUND", errCode(t, rec))
}

func TestOrgScopeInactiveOrg(t *testing.T) {
	orgs, members := fixtures()
	e := newOrgTestServer(orgs, members, "")

	rec := get(e, "/api/orgs/closed/resource")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "ORG_INACTIVE", errCode(t, rec))
}

func TestOrgScopeNotAMember(t *testing.T) {
	orgs, members := fixtures()
	// An active org the caller holds no membership in
	orgs.orgs["other"] = &model.Organization{ID: 12, Slug: "other", Status: model.OrgStatusActive}
	e := newOrgTestServer(orgs, members, "")

	rec := get(e, "/api/orgs/other/resource")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "NOT_A_MEMBER", errCode(t, rec))
}

func TestOrgScopeAttachesRole(t *testing.T) {
	orgs, members := fixtures()
	e := newOrgTestServer(orgs, members, "")

	rec := get(e, "/api/orgs/acme/resource")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), model.RoleTechnician)
}

func TestRequireRoleInsufficient(t *testing.T) {
	orgs, members := fixtures()
	e := newOrgTestServer(orgs, members, model.RoleManager)

	// Caller is a technician; the route requires manager
	rec := get(e, "/api/orgs/acme/resource")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "INSUFFICIENT_ROLE", errCode(t, rec))
}

func TestRequireRolePasses(t *testing.T) {
	orgs, members := fixtures()
	members.memberships[[2]uint{1, 10}].Role = model.RoleOrgAdmin
	e := newOrgTestServer(orgs, members, model.RoleManager)

	rec := get(e, "/api/orgs/acme/resource")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNonMemberNeverSeesRoleError(t *testing.T) {
	// A user with zero memberships must fail with NOT_A_MEMBER even on
	// routes that declare a minimum role.
	orgs, _ := fixtures()
	members := &fakeMembershipResolver{memberships: map[[2]uint]*model.Membership{}}
	e := newOrgTestServer(orgs, members, model.RoleManager)

	rec := get(e, "/api/orgs/acme/resource")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "NOT_A_MEMBER", errCode(t, rec))
}
