package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/store-ratings/internal/auth"
	"github.com/Clark-Hu/store-ratings/internal/domain"
)

type ratingRequest struct {
	Rating *int `json:"rating"`
}

type ratingResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	StoreID   string    `json:"storeId"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
	UserName  string    `json:"userName"`
}

type ratingListResponse struct {
	Items []ratingResponse `json:"items"`
}

type submitRatingResponse struct {
	Rating ratingResponse `json:"rating"`
	Store  storeResponse  `json:"store"`
}

func (s *Server) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if req.Rating == nil {
		var v domain.ValidationError
		v.Add("rating", "rating is required")
		s.respondServiceError(w, "submit rating", v.Err())
		return
	}

	user := auth.UserFrom(r.Context())
	sub, err := s.app.Ratings.Submit(r.Context(), user.ID, chi.URLParam(r, "id"), *req.Rating)
	if err != nil {
		s.respondServiceError(w, "submit rating", err)
		return
	}

	status := http.StatusOK
	if sub.Inserted {
		status = http.StatusCreated
	}
	s.respondJSON(w, status, submitRatingResponse{
		Rating: toRatingResponse(sub.Rating),
		Store:  toStoreResponse(sub.Store),
	})
}

// handleStoreRatings lists a store's ratings. Store owners only see their own store.
func (s *Server) handleStoreRatings(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "id")
	user := auth.UserFrom(r.Context())
	if user.Role == domain.RoleStoreOwner && user.StoreID != storeID {
		s.respondJSON(w, http.StatusForbidden, forbiddenResponse{
			Code:     "FORBIDDEN",
			Message:  "Store owners can only view ratings of their own store",
			Redirect: user.Role.LandingPath(),
		})
		return
	}

	list, err := s.app.Ratings.ForStore(r.Context(), storeID)
	if err != nil {
		s.respondServiceError(w, "list store ratings", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toRatingList(list))
}

func (s *Server) handleMyStoreRating(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFrom(r.Context())
	rating, ok, err := s.app.Ratings.One(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, "fetch rating", err)
		return
	}
	if !ok {
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "You have not rated this store")
		return
	}
	s.respondJSON(w, http.StatusOK, toRatingResponse(rating))
}

func (s *Server) handleMyRatings(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFrom(r.Context())
	list, err := s.app.Ratings.ForUser(r.Context(), user.ID)
	if err != nil {
		s.respondServiceError(w, "list ratings", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toRatingList(list))
}

func (s *Server) handleAllRatings(w http.ResponseWriter, r *http.Request) {
	list, err := s.app.Ratings.All(r.Context())
	if err != nil {
		s.respondServiceError(w, "list ratings", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toRatingList(list))
}

func toRatingResponse(rating domain.Rating) ratingResponse {
	return ratingResponse{
		ID:        rating.ID,
		UserID:    rating.UserID,
		StoreID:   rating.StoreID,
		Rating:    rating.Value,
		CreatedAt: rating.CreatedAt,
		UserName:  rating.UserName,
	}
}

func toRatingList(list []domain.Rating) ratingListResponse {
	items := make([]ratingResponse, 0, len(list))
	for _, rating := range list {
		items = append(items, toRatingResponse(rating))
	}
	return ratingListResponse{Items: items}
}
