package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/operate360/operate360/internal/shared"
	_ "github.com/operate360/operate360/testing"
)

type HandlerSuite struct {
	suite.Suite

	fixture *fixture
	events  *eventLog
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.fixture = newFixture(s.T())
	s.events = &eventLog{}
	guard := NewGuard(s.fixture.codec, s.fixture.revocations, nil, s.events)
	handler := NewHandler(nil, s.fixture.service, guard, s.events, 0)

	r := chi.NewRouter()
	r.Route("/api/auth", handler.MountRoutes)
	r.With(guard.Authenticate).Get("/api/protected", func(w http.ResponseWriter, r *http.Request) {
		p, _ := shared.PrincipalFromContext(r.Context())
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"userId": p.UserID})
	})
	s.router = r
}

func (s *HandlerSuite) do(method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(s.T(), json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	s.router.ServeHTTP(res, req)

	var decoded map[string]any
	if res.Body.Len() > 0 {
		s.Require().NoError(json.Unmarshal(res.Body.Bytes(), &decoded), res.Body.String())
	}
	return res, decoded
}

func (s *HandlerSuite) register(username, email, password string, roleID int64) string {
	res, body := s.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": username, "email": email, "password": password, "roleId": roleID,
	})
	s.Require().Equal(http.StatusCreated, res.Code, res.Body.String())
	return body["token"].(string)
}

func (s *HandlerSuite) TestRegisterThenDuplicate() {
	res, body := s.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": "alice", "email": "alice@x.io", "password": "pw1", "roleId": 2,
	})
	s.Equal(http.StatusCreated, res.Code)
	s.Equal("Register a user successfully", body["message"])
	s.NotEmpty(body["token"])
	user := body["user"].(map[string]any)
	s.Equal("alice", user["username"])
	s.Equal("alice@x.io", user["email"])
	s.NotContains(res.Body.String(), "password")

	res, body = s.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": "alice2", "email": "alice@x.io", "password": "other", "roleId": 2,
	})
	s.Equal(http.StatusBadRequest, res.Code)
	s.Equal("Email is already registered", body["message"])
	s.True(s.events.has("register", "rejected"))
}

func (s *HandlerSuite) TestRegisterMissingFields() {
	res, body := s.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"username": "carol", "email": "carol@x.io",
	})
	s.Equal(http.StatusBadRequest, res.Code)
	s.Equal("All fields are required", body["message"])
}

func (s *HandlerSuite) TestLoginFlow() {
	s.register("alice", "alice@x.io", "pw1", 2)

	res, body := s.do(http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "alice@x.io", "password": "pw1",
	})
	s.Equal(http.StatusOK, res.Code)
	s.Equal("login successfully", body["message"])
	token := body["token"].(string)

	claims, err := s.fixture.codec.Verify(token)
	s.Require().NoError(err)
	s.Equal("alice", claims.Username)
	s.EqualValues(2, claims.RoleID)
	s.True(s.events.has("login", "success"))
}

func (s *HandlerSuite) TestLoginFailuresAreIndistinguishable() {
	s.register("alice", "alice@x.io", "pw1", 2)

	wrong, wrongBody := s.do(http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "alice@x.io", "password": "nope",
	})
	unknown, unknownBody := s.do(http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "nobody@x.io", "password": "nope",
	})
	s.Equal(http.StatusUnauthorized, wrong.Code)
	s.Equal(http.StatusUnauthorized, unknown.Code)
	s.Equal("Invalid email or password", wrongBody["message"])
	s.Equal(wrongBody, unknownBody)
}

func (s *HandlerSuite) TestLoginMissingFields() {
	res, body := s.do(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "alice@x.io"})
	s.Equal(http.StatusBadRequest, res.Code)
	s.Equal("Email and password are required", body["message"])

	res, body = s.do(http.MethodPost, "/api/auth/login", "", nil)
	s.Equal(http.StatusBadRequest, res.Code)
	s.Equal("Email and password are required", body["message"])
}

func (s *HandlerSuite) TestMalformedBody() {
	res, body := s.do(http.MethodPost, "/api/auth/login", "", "{not json")
	s.Equal(http.StatusBadRequest, res.Code)
	s.Equal("Invalid request body", body["message"])
}

func (s *HandlerSuite) TestLogoutWithoutHeader() {
	res, body := s.do(http.MethodPost, "/api/auth/logout", "", nil)
	s.Equal(http.StatusUnauthorized, res.Code)
	s.Equal("Unauthorized", body["message"])
}

func (s *HandlerSuite) TestLogoutRevokesToken() {
	token := s.register("alice", "alice@x.io", "pw1", 2)

	res, _ := s.do(http.MethodGet, "/api/protected", token, nil)
	s.Equal(http.StatusOK, res.Code)

	res, body := s.do(http.MethodPost, "/api/auth/logout", token, nil)
	s.Equal(http.StatusOK, res.Code)
	s.Equal("Logout successful", body["message"])

	res, body = s.do(http.MethodGet, "/api/protected", token, nil)
	s.Equal(http.StatusForbidden, res.Code)
	s.Equal("Invalid token", body["message"])

	res, _ = s.do(http.MethodPost, "/api/auth/logout", token, nil)
	s.Equal(http.StatusOK, res.Code, "logout is idempotent")
}

func (s *HandlerSuite) TestLogoutLeavesOtherTokensValid() {
	first := s.register("alice", "alice@x.io", "pw1", 2)
	_, body := s.do(http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "alice@x.io", "password": "pw1",
	})
	second := body["token"].(string)
	s.NotEqual(first, second)

	res, _ := s.do(http.MethodPost, "/api/auth/logout", first, nil)
	s.Equal(http.StatusOK, res.Code)

	res, _ = s.do(http.MethodGet, "/api/protected", second, nil)
	s.Equal(http.StatusOK, res.Code)
}

func (s *HandlerSuite) TestMe() {
	token := s.register("alice", "alice@x.io", "pw1", 2)

	res, body := s.do(http.MethodGet, "/api/auth/me", token, nil)
	s.Equal(http.StatusOK, res.Code)
	user := body["user"].(map[string]any)
	s.Equal("alice@x.io", user["email"])

	res, _ = s.do(http.MethodGet, "/api/auth/me", "", nil)
	s.Equal(http.StatusUnauthorized, res.Code)
}

func (s *HandlerSuite) TestStoreFailureDoesNotLeak() {
	s.fixture.repo.findErr = errStoreDown

	res, body := s.do(http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "alice@x.io", "password": "pw1",
	})
	s.Equal(http.StatusInternalServerError, res.Code)
	s.Equal("Internal Server Error", body["message"])
	s.NotContains(res.Body.String(), errStoreDown.Error())
	s.True(s.events.has("login", "error"))
}
