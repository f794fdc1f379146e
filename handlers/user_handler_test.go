package handlers

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avery-hart/librarysysbackend/permissions"
	"github.com/avery-hart/librarysysbackend/repository"
)

func userRouter(env *testEnv) http.Handler {
	h := &UserHandler{UserRepo: env.userRepo, Cfg: env.cfg}
	r := chi.NewRouter()
	r.Post("/users/signup", h.SignUp)
	r.Get("/users/me", h.GetMe)
	r.Patch("/users/me", h.UpdateMe)
	r.Patch("/users/me/password", h.UpdateMyPassword)
	r.Delete("/users/me", h.DeleteMe)
	r.Get("/users", h.ListUsers)
	r.Post("/users", h.CreateUser)
	r.Get("/users/{user_id}", h.GetUser)
	r.Patch("/users/{user_id}", h.UpdateUser)
	r.Delete("/users/{user_id}", h.DeleteUser)
	return r
}

func TestSignUp(t *testing.T) {
	env := newTestEnv(t, "userh_signup")
	router := userRouter(env)

	t.Run("success canonicalizes email", func(t *testing.T) {
		name := "New Reader"
		rr := doRequest(t, router, http.MethodPost, "/users/signup", UserSignupPayload{
			Email:    "  Reader@Example.COM ",
			Password: "changeme123",
			FullName: &name,
		}, nil)
		require.Equal(t, http.StatusCreated, rr.Code, "body: %s", rr.Body.String())

		var resp UserResponse
		decodeResponse(t, rr, &resp)
		assert.Equal(t, "reader@example.com", resp.Email)
		assert.Equal(t, permissions.RoleMember, resp.Role)
		assert.True(t, resp.IsActive)
		// open registration never yields privileged accounts
		assert.False(t, resp.IsSuperuser)
	})

	t.Run("mixed-case duplicate rejected", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPost, "/users/signup", UserSignupPayload{
			Email:    "READER@example.com",
			Password: "changeme123",
		}, nil)
		detail := assertAPIError(t, rr, http.StatusConflict, ErrCodeConflict)
		assert.Equal(t, "User with this email already exists", detail.Detail)
	})

	t.Run("short password", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPost, "/users/signup", UserSignupPayload{
			Email:    "short@example.com",
			Password: "short",
		}, nil)
		detail := assertAPIError(t, rr, http.StatusUnprocessableEntity, ErrCodeValidationFailed)
		assert.Equal(t, "Password must be at least 8 characters", detail.Detail)
	})

	t.Run("bad email", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPost, "/users/signup", UserSignupPayload{
			Email:    "not-an-email",
			Password: "changeme123",
		}, nil)
		assertAPIError(t, rr, http.StatusUnprocessableEntity, ErrCodeValidationFailed)
	})
}

func TestSelfService(t *testing.T) {
	env := newTestEnv(t, "userh_self")
	router := userRouter(env)

	user := env.newUser(t, "self@example.com", permissions.RoleMember, false)

	t.Run("get me", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet, "/users/me", nil, user)
		require.Equal(t, http.StatusOK, rr.Code)
		var resp UserResponse
		decodeResponse(t, rr, &resp)
		assert.Equal(t, user.ID, resp.ID)
	})

	t.Run("update own name", func(t *testing.T) {
		name := "Self Service"
		rr := doRequest(t, router, http.MethodPatch, "/users/me", UserUpdateMePayload{FullName: &name}, user)
		require.Equal(t, http.StatusOK, rr.Code, "body: %s", rr.Body.String())
		var resp UserResponse
		decodeResponse(t, rr, &resp)
		require.NotNil(t, resp.FullName)
		assert.Equal(t, name, *resp.FullName)
	})

	t.Run("email taken by another user", func(t *testing.T) {
		env.newUser(t, "taken@example.com", permissions.RoleMember, false)
		email := "taken@example.com"
		rr := doRequest(t, router, http.MethodPatch, "/users/me", UserUpdateMePayload{Email: &email}, user)
		assertAPIError(t, rr, http.StatusConflict, ErrCodeConflict)
	})
}

func TestUpdateMyPassword(t *testing.T) {
	env := newTestEnv(t, "userh_password")
	router := userRouter(env)

	user := env.newUser(t, "rotate@example.com", permissions.RoleMember, false)

	t.Run("wrong current password", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPatch, "/users/me/password", UpdatePasswordPayload{
			CurrentPassword: "wrongwrong",
			NewPassword:     "freshpass456",
		}, user)
		detail := assertAPIError(t, rr, http.StatusBadRequest, ErrCodeBadRequest)
		assert.Equal(t, "Incorrect password", detail.Detail)
	})

	t.Run("new must differ", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPatch, "/users/me/password", UpdatePasswordPayload{
			CurrentPassword: "changeme123",
			NewPassword:     "changeme123",
		}, user)
		assertAPIError(t, rr, http.StatusBadRequest, ErrCodeBadRequest)
	})

	t.Run("success", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPatch, "/users/me/password", UpdatePasswordPayload{
			CurrentPassword: "changeme123",
			NewPassword:     "freshpass456",
		}, user)
		require.Equal(t, http.StatusOK, rr.Code, "body: %s", rr.Body.String())

		stored, err := env.userRepo.GetByID(user.ID)
		require.NoError(t, err)
		assert.True(t, stored.CheckPassword("freshpass456"))
		assert.False(t, stored.CheckPassword("changeme123"))
	})
}

func TestDeleteMe(t *testing.T) {
	env := newTestEnv(t, "userh_deleteme")
	router := userRouter(env)

	admin := env.newUser(t, "admin@example.com", permissions.RoleLibrarian, true)
	member := env.newUser(t, "leaving@example.com", permissions.RoleMember, false)

	rr := doRequest(t, router, http.MethodDelete, "/users/me", nil, admin)
	detail := assertAPIError(t, rr, http.StatusForbidden, ErrCodeForbidden)
	assert.Equal(t, "Super users are not allowed to delete themselves", detail.Detail)

	rr = doRequest(t, router, http.MethodDelete, "/users/me", nil, member)
	require.Equal(t, http.StatusOK, rr.Code)

	_, err := env.userRepo.GetByID(member.ID)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestAdminCreateUser(t *testing.T) {
	env := newTestEnv(t, "userh_admincreate")
	router := userRouter(env)

	t.Run("librarian with flags", func(t *testing.T) {
		inactive := false
		rr := doRequest(t, router, http.MethodPost, "/users", UserCreatePayload{
			Email:       "staff@example.com",
			Password:    "changeme123",
			Role:        "librarian",
			IsActive:    &inactive,
			IsSuperuser: true,
		}, nil)
		require.Equal(t, http.StatusCreated, rr.Code, "body: %s", rr.Body.String())

		var resp UserResponse
		decodeResponse(t, rr, &resp)
		assert.Equal(t, permissions.RoleLibrarian, resp.Role)
		assert.False(t, resp.IsActive)
		assert.True(t, resp.IsSuperuser)
	})

	t.Run("defaults to active member", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPost, "/users", UserCreatePayload{
			Email:    "plain@example.com",
			Password: "changeme123",
		}, nil)
		require.Equal(t, http.StatusCreated, rr.Code)
		var resp UserResponse
		decodeResponse(t, rr, &resp)
		assert.Equal(t, permissions.RoleMember, resp.Role)
		assert.True(t, resp.IsActive)
	})

	t.Run("unknown role", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodPost, "/users", UserCreatePayload{
			Email:    "ghost@example.com",
			Password: "changeme123",
			Role:     "admin",
		}, nil)
		detail := assertAPIError(t, rr, http.StatusUnprocessableEntity, ErrCodeValidationFailed)
		assert.Equal(t, "Invalid role: must be 'librarian' or 'member'", detail.Detail)
	})
}

func TestGetUserVisibility(t *testing.T) {
	env := newTestEnv(t, "userh_getuser")
	router := userRouter(env)

	admin := env.newUser(t, "root@example.com", permissions.RoleLibrarian, true)
	alice := env.newUser(t, "alice@example.com", permissions.RoleMember, false)
	bob := env.newUser(t, "bob@example.com", permissions.RoleMember, false)

	t.Run("self", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet, "/users/"+alice.ID, nil, alice)
		require.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("superuser sees anyone", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet, "/users/"+alice.ID, nil, admin)
		require.Equal(t, http.StatusOK, rr.Code)
		var resp UserResponse
		decodeResponse(t, rr, &resp)
		assert.Equal(t, alice.ID, resp.ID)
	})

	t.Run("cross-user denied", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet, "/users/"+alice.ID, nil, bob)
		assertAPIError(t, rr, http.StatusForbidden, ErrCodeForbidden)
	})

	t.Run("missing user", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodGet, "/users/7b0d2c8e-27be-4f83-b3a1-5e0db51f8b6b", nil, admin)
		assertAPIError(t, rr, http.StatusNotFound, ErrCodeNotFound)
	})
}

func TestAdminUpdateAndDeleteUser(t *testing.T) {
	env := newTestEnv(t, "userh_adminupdate")
	router := userRouter(env)

	admin := env.newUser(t, "root@example.com", permissions.RoleLibrarian, true)
	member := env.newUser(t, "promote@example.com", permissions.RoleMember, false)

	t.Run("promote to librarian", func(t *testing.T) {
		role := "librarian"
		active := false
		rr := doRequest(t, router, http.MethodPatch, "/users/"+member.ID, UserUpdatePayload{
			Role:     &role,
			IsActive: &active,
		}, admin)
		require.Equal(t, http.StatusOK, rr.Code, "body: %s", rr.Body.String())

		var resp UserResponse
		decodeResponse(t, rr, &resp)
		assert.Equal(t, permissions.RoleLibrarian, resp.Role)
		assert.False(t, resp.IsActive)
	})

	t.Run("missing user", func(t *testing.T) {
		name := "Nobody"
		rr := doRequest(t, router, http.MethodPatch, "/users/7b0d2c8e-27be-4f83-b3a1-5e0db51f8b6b", UserUpdatePayload{FullName: &name}, admin)
		assertAPIError(t, rr, http.StatusNotFound, ErrCodeNotFound)
	})

	t.Run("admin cannot delete self", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodDelete, "/users/"+admin.ID, nil, admin)
		assertAPIError(t, rr, http.StatusForbidden, ErrCodeForbidden)
	})

	t.Run("delete other user", func(t *testing.T) {
		rr := doRequest(t, router, http.MethodDelete, "/users/"+member.ID, nil, admin)
		require.Equal(t, http.StatusOK, rr.Code)
		_, err := env.userRepo.GetByID(member.ID)
		assert.ErrorIs(t, err, repository.ErrUserNotFound)
	})
}

func TestListUsersPagination(t *testing.T) {
	env := newTestEnv(t, "userh_list")
	router := userRouter(env)

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		env.newUser(t, email, permissions.RoleMember, false)
	}

	rr := doRequest(t, router, http.MethodGet, "/users?limit=2&skip=1", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data  []UserResponse `json:"data"`
		Count int64          `json:"count"`
	}
	decodeResponse(t, rr, &resp)
	assert.Equal(t, int64(3), resp.Count)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "b@example.com", resp.Data[0].Email)

	// the password hash never leaves the server
	assert.NotContains(t, rr.Body.String(), "password")
}
