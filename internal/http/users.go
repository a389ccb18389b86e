package httpserver

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/store-ratings/internal/accounts"
	"github.com/Clark-Hu/store-ratings/internal/auth"
	"github.com/Clark-Hu/store-ratings/internal/domain"
)

type userResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Address   string      `json:"address"`
	Role      domain.Role `json:"role"`
	StoreID   string      `json:"storeId,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	Password string `json:"password"`
}

type createUserRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Address  string      `json:"address"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      userResponse `json:"user"`
	Redirect  string       `json:"redirect"`
}

type meResponse struct {
	User     userResponse `json:"user"`
	Redirect string       `json:"redirect"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type userListResponse struct {
	Items []userResponse `json:"items"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	u, err := s.app.Accounts.Signup(r.Context(), accounts.SignupParams{
		Name:     req.Name,
		Email:    req.Email,
		Address:  req.Address,
		Password: req.Password,
	})
	if err != nil {
		s.respondServiceError(w, "sign up", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, toUserResponse(u))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	session, err := s.app.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondServiceError(w, "log in", err)
		return
	}
	s.respondJSON(w, http.StatusOK, loginResponse{
		Token:     session.Token.Token,
		ExpiresAt: session.Token.ExpiresAt,
		User:      toUserResponse(session.User),
		Redirect:  session.User.Role.LandingPath(),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFrom(r.Context())
	s.respondJSON(w, http.StatusOK, meResponse{
		User:     toUserResponse(*user),
		Redirect: user.Role.LandingPath(),
	})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	user := auth.UserFrom(r.Context())
	if err := s.app.Accounts.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		s.respondServiceError(w, "change password", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	filter, err := buildUserFilter(r.URL.Query())
	if err != nil {
		s.respondServiceError(w, "list users", err)
		return
	}
	users, err := s.app.Accounts.List(r.Context(), filter)
	if err != nil {
		s.respondServiceError(w, "list users", err)
		return
	}
	items := make([]userResponse, 0, len(users))
	for _, u := range users {
		items = append(items, toUserResponse(u))
	}
	s.respondJSON(w, http.StatusOK, userListResponse{Items: items})
}

// buildUserFilter reads q, role, sort and order from the query string.
func buildUserFilter(query url.Values) (domain.UserFilter, error) {
	var filter domain.UserFilter
	filter.Query = strings.TrimSpace(query.Get("q"))

	if raw := strings.TrimSpace(query.Get("role")); raw != "" {
		role, err := domain.ParseRole(raw)
		if err != nil {
			return domain.UserFilter{}, err
		}
		filter.Role = &role
	}

	sortBy, err := domain.ParseUserSortField(strings.TrimSpace(query.Get("sort")))
	if err != nil {
		return domain.UserFilter{}, err
	}
	filter.SortBy = sortBy

	switch strings.ToLower(strings.TrimSpace(query.Get("order"))) {
	case "", "asc":
	case "desc":
		filter.Descending = true
	default:
		var v domain.ValidationError
		v.Add("order", "order must be asc or desc")
		return domain.UserFilter{}, v.Err()
	}
	return filter, nil
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	u, err := s.app.Accounts.Create(r.Context(), accounts.CreateParams{
		Name:     req.Name,
		Email:    req.Email,
		Address:  req.Address,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		s.respondServiceError(w, "create user", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, toUserResponse(u))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.app.Accounts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, "fetch user", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toUserResponse(u))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Accounts.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondServiceError(w, "delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Address:   u.Address,
		Role:      u.Role,
		StoreID:   u.StoreID,
		CreatedAt: u.CreatedAt,
	}
}
