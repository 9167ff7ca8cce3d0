package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/storerating/rating-api/internal/core/domain"
	"github.com/storerating/rating-api/internal/core/policy"
	"github.com/storerating/rating-api/internal/core/ports"
)

func TestUserHandler_List_PassesFilter(t *testing.T) {
	handler := NewUserHandler(&stubUserService{
		listFn: func(ctx context.Context, p policy.Principal, f ports.ListUsersFilter) ([]*domain.User, error) {
			if p.Role != domain.RoleAdmin {
				t.Fatalf("unexpected principal: %+v", p)
			}
			want := ports.ListUsersFilter{Name: "ali", Email: "example", Address: "main", Role: domain.RoleStoreOwner}
			if f != want {
				t.Fatalf("unexpected filter: %+v", f)
			}
			return []*domain.User{{ID: 1}, {ID: 2}}, nil
		},
	})

	c, rec := newContext(http.MethodGet, "/api/users?name=ali&email=example&address=main&role=store_owner", "")
	authenticate(c, 1, domain.RoleAdmin)
	if err := handler.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("expected 2 users, got %d", len(resp))
	}
}

func TestUserHandler_Create(t *testing.T) {
	handler := NewUserHandler(&stubUserService{
		createFn: func(ctx context.Context, p policy.Principal, in ports.CreateUserInput) (*domain.User, error) {
			if in.Role != domain.RoleStoreOwner || in.Email != "owner@example.com" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.User{ID: 9, Name: in.Name, Email: in.Email, Role: in.Role}, nil
		},
	})

	body := `{"name":"Olivia Owner Of Stores","email":"owner@example.com","password":"Passw0rd!","role":"store_owner"}`
	c, rec := newContext(http.MethodPost, "/api/users", body)
	authenticate(c, 1, domain.RoleAdmin)
	if err := handler.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestUserHandler_Create_InvalidRole(t *testing.T) {
	handler := NewUserHandler(&stubUserService{
		createFn: func(context.Context, policy.Principal, ports.CreateUserInput) (*domain.User, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	})

	body := `{"name":"Olivia Owner Of Stores","email":"owner@example.com","password":"Passw0rd!","role":"root"}`
	c, _ := newContext(http.MethodPost, "/api/users", body)
	authenticate(c, 1, domain.RoleAdmin)
	if err := handler.Create(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestUserHandler_Update_PartialFields(t *testing.T) {
	handler := NewUserHandler(&stubUserService{
		updateFn: func(ctx context.Context, p policy.Principal, id int64, in ports.UpdateUserInput) (*domain.User, error) {
			if id != 5 {
				t.Fatalf("unexpected id %d", id)
			}
			if in.Name != nil || in.Email != nil || in.Password != nil {
				t.Fatalf("unset fields must stay nil: %+v", in)
			}
			if in.Role == nil || *in.Role != domain.RoleStoreOwner {
				t.Fatalf("expected role store_owner, got %v", in.Role)
			}
			if in.StoreID == nil || *in.StoreID != 12 {
				t.Fatalf("expected store id 12, got %v", in.StoreID)
			}
			return &domain.User{ID: id, Role: *in.Role, StoreID: in.StoreID}, nil
		},
	})

	c, rec := newContext(http.MethodPut, "/api/users/5", `{"role":"store_owner","store_id":12}`)
	authenticate(c, 1, domain.RoleAdmin)
	withParam(c, "id", "5")
	if err := handler.Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestUserHandler_Delete_InvalidID(t *testing.T) {
	handler := NewUserHandler(&stubUserService{
		deleteFn: func(context.Context, policy.Principal, int64) error {
			t.Fatalf("should not be called")
			return nil
		},
	})

	for _, raw := range []string{"abc", "0", "-3"} {
		c, _ := newContext(http.MethodDelete, "/api/users/"+raw, "")
		authenticate(c, 1, domain.RoleAdmin)
		withParam(c, "id", raw)
		if err := handler.Delete(c); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("id %q: expected ErrValidation, got %v", raw, err)
		}
	}
}

func TestUserHandler_Delete_PropagatesForbidden(t *testing.T) {
	handler := NewUserHandler(&stubUserService{
		deleteFn: func(ctx context.Context, p policy.Principal, id int64) error {
			return policy.Authorize(p, policy.DeleteUser, policy.Resource{})
		},
	})

	c, _ := newContext(http.MethodDelete, "/api/users/2", "")
	authenticate(c, 4, domain.RoleUser)
	withParam(c, "id", "2")
	if err := handler.Delete(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestUserHandler_DashboardStats(t *testing.T) {
	handler := NewUserHandler(&stubUserService{
		statsFn: func(context.Context, policy.Principal) (*domain.DashboardStats, error) {
			return domain.NewDashboardStats(
				map[domain.Role]int64{domain.RoleUser: 3, domain.RoleAdmin: 1},
				2,
				domain.Totals{Count: 4, Sum: 15},
			), nil
		},
	})

	c, rec := newContext(http.MethodGet, "/api/users/dashboard-stats", "")
	authenticate(c, 1, domain.RoleAdmin)
	if err := handler.DashboardStats(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp domain.DashboardStats
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Users.Total != 4 || resp.Stores.Total != 2 || resp.Ratings.Total != 4 || resp.Ratings.Average != 3.8 {
		t.Fatalf("unexpected stats: %+v", resp)
	}
}
