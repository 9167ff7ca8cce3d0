// Package policy maps an actor's role and resource ownership to the operations
// they may perform. It is the only place role checks are decided.
package policy

import (
	"github.com/storerating/rating-api/internal/core/domain"
)

// Action is an operation subject to authorization.
type Action int

const (
	ReadStores Action = iota
	SubmitRating
	CreateStore
	UpdateStore
	DeleteStore
	DeleteUser
	DeleteRating
	ManageUsers
	ViewOwnerDashboard
)

func (a Action) String() string {
	switch a {
	case ReadStores:
		return "read_stores"
	case SubmitRating:
		return "submit_rating"
	case CreateStore:
		return "create_store"
	case UpdateStore:
		return "update_store"
	case DeleteStore:
		return "delete_store"
	case DeleteUser:
		return "delete_user"
	case DeleteRating:
		return "delete_rating"
	case ManageUsers:
		return "manage_users"
	case ViewOwnerDashboard:
		return "view_owner_dashboard"
	default:
		return "unknown"
	}
}

// Principal is the authenticated actor.
type Principal struct {
	UserID int64
	Role   domain.Role
}

// Resource describes the target of a store-scoped action. OwnerID is the
// store's owner for UpdateStore, or the intended owner for CreateStore.
type Resource struct {
	OwnerID *int64
}

// Store builds the Resource for a store.
func Store(s *domain.Store) Resource {
	return Resource{OwnerID: s.OwnerID}
}

// Owner builds the Resource for an intended owner.
func Owner(userID int64) Resource {
	return Resource{OwnerID: &userID}
}

func (r Resource) ownedBy(userID int64) bool {
	return r.OwnerID != nil && *r.OwnerID == userID
}

// Authorize returns nil when p may perform a on res, domain.ErrForbidden-kind
// error otherwise.
func Authorize(p Principal, a Action, res Resource) error {
	if p.UserID == 0 {
		return domain.ErrUnauthenticated
	}

	switch p.Role {
	case domain.RoleAdmin:
		return nil

	case domain.RoleStoreOwner:
		switch a {
		case ReadStores, SubmitRating, ViewOwnerDashboard:
			return nil
		case CreateStore:
			if res.ownedBy(p.UserID) {
				return nil
			}
			return domain.Forbidden("you can only create a store for yourself")
		case UpdateStore:
			if res.ownedBy(p.UserID) {
				return nil
			}
			return domain.Forbidden("you do not have permission to update this store")
		}

	case domain.RoleUser:
		switch a {
		case ReadStores, SubmitRating, ViewOwnerDashboard:
			return nil
		case CreateStore:
			if res.ownedBy(p.UserID) {
				return nil
			}
			return domain.Forbidden("you can only create a store for yourself")
		}
	}

	return domain.Forbidden("access denied: " + a.String() + " requires admin privileges")
}
