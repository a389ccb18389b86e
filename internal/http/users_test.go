package httpserver

import (
	"errors"
	"net/url"
	"testing"

	"github.com/Clark-Hu/store-ratings/internal/domain"
)

func TestBuildUserFilter(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    domain.UserFilter
		wantErr bool
	}{
		{name: "defaults", query: "", want: domain.UserFilter{SortBy: domain.SortByName}},
		{name: "search trimmed", query: "q=+john+", want: domain.UserFilter{Query: "john", SortBy: domain.SortByName}},
		{name: "sort desc", query: "sort=email&order=DESC", want: domain.UserFilter{SortBy: domain.SortByEmail, Descending: true}},
		{name: "bad sort", query: "sort=password", wantErr: true},
		{name: "bad order", query: "order=sideways", wantErr: true},
		{name: "bad role", query: "role=superuser", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("parse query: %v", err)
			}
			got, err := buildUserFilter(values)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidValue) {
					t.Fatalf("buildUserFilter(%q) error = %v, want ErrInvalidValue", tt.query, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("buildUserFilter(%q) unexpected error: %v", tt.query, err)
			}
			if got.Query != tt.want.Query || got.SortBy != tt.want.SortBy || got.Descending != tt.want.Descending || got.Role != nil {
				t.Fatalf("buildUserFilter(%q) = %+v, want %+v", tt.query, got, tt.want)
			}
		})
	}

	got, err := buildUserFilter(url.Values{"role": {"store_owner"}})
	if err != nil || got.Role == nil || *got.Role != domain.RoleStoreOwner {
		t.Fatalf("role filter = %+v, %v", got, err)
	}
}

func FuzzBuildUserFilter(f *testing.F) {
	f.Add("john", "user", "email", "desc")
	f.Add("", "", "", "")
	f.Add("%", "admin", "role", "asc")
	f.Fuzz(func(t *testing.T, q, role, sort, order string) {
		filter, err := buildUserFilter(url.Values{"q": {q}, "role": {role}, "sort": {sort}, "order": {order}})
		if err != nil {
			if !errors.Is(err, domain.ErrInvalidValue) {
				t.Fatalf("unexpected error kind: %v", err)
			}
			return
		}
		if _, err := domain.ParseUserSortField(string(filter.SortBy)); err != nil || filter.SortBy == "" {
			t.Fatalf("accepted invalid sort %q", filter.SortBy)
		}
		if filter.Role != nil && !filter.Role.Valid() {
			t.Fatalf("accepted invalid role %q", *filter.Role)
		}
	})
}
