package httpserver

import "net/http"

type dashboardResponse struct {
	TotalUsers   int `json:"totalUsers"`
	TotalStores  int `json:"totalStores"`
	TotalRatings int `json:"totalRatings"`
}

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.app.Dashboard.Stats(r.Context())
	if err != nil {
		s.respondServiceError(w, "load dashboard", err)
		return
	}
	s.respondJSON(w, http.StatusOK, dashboardResponse{
		TotalUsers:   stats.TotalUsers,
		TotalStores:  stats.TotalStores,
		TotalRatings: stats.TotalRatings,
	})
}
