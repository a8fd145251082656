package users

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"github.com/operate360/operate360/internal/auth"
	_ "github.com/operate360/operate360/testing"
)

type HandlerSuite struct {
	suite.Suite

	fixture *fixture
	codec   *auth.TokenCodec
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.fixture = newFixture(s.T())
	codec, err := auth.NewTokenCodec("users-handler-secret")
	s.Require().NoError(err)
	s.codec = codec
	guard := auth.NewGuard(codec, auth.NewMemoryRegistry(), nil, nil)

	r := chi.NewRouter()
	r.Route("/api/user", NewHandler(nil, s.fixture.service, guard, adminRole).MountRoutes)
	s.router = r
}

func (s *HandlerSuite) tokenFor(id int64) string {
	user, err := s.fixture.service.GetUser(s.T().Context(), id)
	s.Require().NoError(err)
	token, _, err := s.codec.Issue(auth.Identity{UserID: user.ID, Username: user.Username, RoleID: user.RoleID})
	s.Require().NoError(err)
	return token
}

func (s *HandlerSuite) do(method, path, token string, body any) (*httptest.ResponseRecorder, []byte) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	s.router.ServeHTTP(res, req)
	return res, res.Body.Bytes()
}

func (s *HandlerSuite) message(raw []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	s.Require().NoError(json.Unmarshal(raw, &body), string(raw))
	return body.Message
}

func (s *HandlerSuite) TestRequiresToken() {
	res, raw := s.do(http.MethodGet, "/api/user/", "", nil)
	s.Equal(http.StatusUnauthorized, res.Code)
	s.Equal("Unauthorized", s.message(raw))
}

func (s *HandlerSuite) TestList() {
	res, raw := s.do(http.MethodGet, "/api/user/", s.tokenFor(2), nil)
	s.Require().Equal(http.StatusOK, res.Code)

	var users []User
	s.Require().NoError(json.Unmarshal(raw, &users))
	s.Len(users, 3)
	s.NotContains(string(raw), "hash")
}

func (s *HandlerSuite) TestGet() {
	token := s.tokenFor(2)

	res, raw := s.do(http.MethodGet, "/api/user/3", token, nil)
	s.Equal(http.StatusOK, res.Code)
	var user User
	s.Require().NoError(json.Unmarshal(raw, &user))
	s.Equal("bob", user.Username)

	res, raw = s.do(http.MethodGet, "/api/user/404", token, nil)
	s.Equal(http.StatusNotFound, res.Code)
	s.Equal("User not found", s.message(raw))

	res, raw = s.do(http.MethodGet, "/api/user/abc", token, nil)
	s.Equal(http.StatusBadRequest, res.Code)
	s.Equal("Invalid user ID", s.message(raw))
}

func (s *HandlerSuite) TestUpdateProfile() {
	token := s.tokenFor(2)

	res, raw := s.do(http.MethodPut, "/api/user/2/update-profile", token, map[string]any{
		"username": "alicia", "email": "alicia@x.io", "roleId": 2,
	})
	s.Equal(http.StatusOK, res.Code)
	var user User
	s.Require().NoError(json.Unmarshal(raw, &user))
	s.Equal("alicia@x.io", user.Email)

	res, raw = s.do(http.MethodPut, "/api/user/3/update-profile", token, map[string]any{
		"username": "bobby", "email": "bob@x.io", "roleId": 2,
	})
	s.Equal(http.StatusForbidden, res.Code)
	s.Equal("Forbidden", s.message(raw))

	res, raw = s.do(http.MethodPut, "/api/user/2/update-profile", token, map[string]any{"username": "x"})
	s.Equal(http.StatusBadRequest, res.Code)
	s.Equal("All fields are required", s.message(raw))

	res, raw = s.do(http.MethodPut, "/api/user/2/update-profile", token, map[string]any{
		"username": "alicia", "email": "bob@x.io", "roleId": 2,
	})
	s.Equal(http.StatusBadRequest, res.Code)
	s.Equal("Email is already registered", s.message(raw))
}

func (s *HandlerSuite) TestChangePassword() {
	token := s.tokenFor(2)

	res, raw := s.do(http.MethodPut, "/api/user/2/change-password", token, map[string]any{
		"oldPassword": "wrong", "newPassword": "next",
	})
	s.Equal(http.StatusUnauthorized, res.Code)
	s.Equal("Incorrect old password", s.message(raw))

	res, raw = s.do(http.MethodPut, "/api/user/2/change-password", token, map[string]any{"oldPassword": "alicepw"})
	s.Equal(http.StatusBadRequest, res.Code)
	s.Equal("Old password and new password are required", s.message(raw))

	res, raw = s.do(http.MethodPut, "/api/user/2/change-password", token, map[string]any{
		"oldPassword": "alicepw", "newPassword": "next",
	})
	s.Equal(http.StatusOK, res.Code)
	s.Equal("Password updated successfully", s.message(raw))
}

func (s *HandlerSuite) TestDeleteIsAdminOnly() {
	res, raw := s.do(http.MethodDelete, "/api/user/3", s.tokenFor(2), nil)
	s.Equal(http.StatusForbidden, res.Code)
	s.Equal("Forbidden", s.message(raw))

	admin := s.tokenFor(1)
	res, raw = s.do(http.MethodDelete, "/api/user/3", admin, nil)
	s.Equal(http.StatusOK, res.Code)
	s.Equal("User deleted successfully", s.message(raw))

	res, raw = s.do(http.MethodDelete, "/api/user/3", admin, nil)
	s.Equal(http.StatusNotFound, res.Code)
	s.Equal("User not found", s.message(raw))
}

func (s *HandlerSuite) TestStoreFailure() {
	token := s.tokenFor(2)
	s.fixture.repo.err = errStoreDown

	res, raw := s.do(http.MethodGet, "/api/user/", token, nil)
	s.Equal(http.StatusInternalServerError, res.Code)
	s.Equal("Internal Server Error", s.message(raw))
	s.NotContains(string(raw), errStoreDown.Error())
}
