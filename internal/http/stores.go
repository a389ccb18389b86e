package httpserver

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/store-ratings/internal/domain"
	"github.com/Clark-Hu/store-ratings/internal/stores"
)

type storeResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Address      string  `json:"address"`
	OwnerID      *string `json:"ownerId"`
	Rating       float64 `json:"rating"`
	TotalRatings int     `json:"totalRatings"`
}

type storeListResponse struct {
	Items []storeResponse `json:"items"`
}

type createStoreRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address"`
	OwnerID string `json:"ownerId"`
}

type updateOwnerRequest struct {
	OwnerID string `json:"ownerId"`
}

func (s *Server) handleListStores(w http.ResponseWriter, r *http.Request) {
	list, err := s.app.Stores.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		s.respondServiceError(w, "list stores", err)
		return
	}
	items := make([]storeResponse, 0, len(list))
	for _, st := range list {
		items = append(items, toStoreResponse(st))
	}
	s.respondJSON(w, http.StatusOK, storeListResponse{Items: items})
}

func (s *Server) handleCreateStore(w http.ResponseWriter, r *http.Request) {
	var req createStoreRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	st, err := s.app.Stores.Create(r.Context(), stores.CreateParams{
		Name:    req.Name,
		Email:   req.Email,
		Address: req.Address,
		OwnerID: req.OwnerID,
	})
	if err != nil {
		s.respondServiceError(w, "create store", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, toStoreResponse(st))
}

func (s *Server) handleGetStore(w http.ResponseWriter, r *http.Request) {
	st, err := s.app.Stores.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, "fetch store", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toStoreResponse(st))
}

func (s *Server) handleUpdateOwner(w http.ResponseWriter, r *http.Request) {
	var req updateOwnerRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	st, err := s.app.Stores.UpdateOwner(r.Context(), chi.URLParam(r, "id"), req.OwnerID)
	if err != nil {
		s.respondServiceError(w, "update store owner", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toStoreResponse(st))
}

func (s *Server) handleDeleteStore(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Stores.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondServiceError(w, "delete store", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	st, err := s.app.Ratings.Recompute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, "recompute store rating", err)
		return
	}
	s.respondJSON(w, http.StatusOK, toStoreResponse(st))
}

func toStoreResponse(st domain.Store) storeResponse {
	resp := storeResponse{
		ID:           st.ID,
		Name:         st.Name,
		Email:        st.Email,
		Address:      st.Address,
		Rating:       st.Rating,
		TotalRatings: st.TotalRatings,
	}
	if st.HasOwner() {
		owner := st.OwnerID
		resp.OwnerID = &owner
	}
	return resp
}
