package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/storerating/rating-api/internal/core/domain"
	"github.com/storerating/rating-api/internal/core/policy"
	"github.com/storerating/rating-api/internal/core/ports"
)

// UserService implements admin user management and the dashboard summary.
type UserService struct {
	tx      ports.TxManager
	users   ports.UserRepository
	stores  ports.StoreRepository
	ratings ports.RatingRepository
	cache   ports.StatsCache
	log     zerolog.Logger
}

func NewUserService(
	tx ports.TxManager,
	users ports.UserRepository,
	stores ports.StoreRepository,
	ratings ports.RatingRepository,
	cache ports.StatsCache,
	log zerolog.Logger,
) *UserService {
	if cache == nil {
		cache = NopStatsCache{}
	}
	return &UserService{tx: tx, users: users, stores: stores, ratings: ratings, cache: cache, log: log}
}

func (s *UserService) List(ctx context.Context, p policy.Principal, filter ports.ListUsersFilter) ([]*domain.User, error) {
	if err := policy.Authorize(p, policy.ManageUsers, policy.Resource{}); err != nil {
		return nil, err
	}
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	return s.users.List(ctx, filter)
}

func (s *UserService) Get(ctx context.Context, p policy.Principal, id int64) (*domain.User, error) {
	if err := policy.Authorize(p, policy.ManageUsers, policy.Resource{}); err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, id)
}

func (s *UserService) Create(ctx context.Context, p policy.Principal, in ports.CreateUserInput) (*domain.User, error) {
	if err := policy.Authorize(p, policy.ManageUsers, policy.Resource{}); err != nil {
		return nil, err
	}

	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	user, err := s.newUser(in.Name, in.Email, in.Password, in.Address, role)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	invalidateStats(ctx, s.cache, s.log)

	s.log.Info().Int64("user_id", user.ID).Str("role", string(user.Role)).Int64("by", p.UserID).Msg("user created")
	return user, nil
}

// Update applies the non-nil fields of in. Assigning a store records the user
// as that store's only owner. Moving the user to a role other than store_owner
// detaches every store they owned.
func (s *UserService) Update(ctx context.Context, p policy.Principal, id int64, in ports.UpdateUserInput) (*domain.User, error) {
	if err := policy.Authorize(p, policy.ManageUsers, policy.Resource{}); err != nil {
		return nil, err
	}

	var updated *domain.User
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		u, err := s.users.FindByID(ctx, id)
		if err != nil {
			return err
		}

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return domain.Invalid("name cannot be empty")
			}
			u.Name = name
		}
		if in.Email != nil {
			email := domain.NormalizeEmail(*in.Email)
			if email == "" {
				return domain.Invalid("email cannot be empty")
			}
			if email != u.Email {
				if err := s.ensureEmailFree(ctx, email); err != nil {
					return err
				}
				u.Email = email
			}
		}
		if in.Address != nil {
			u.Address = strings.TrimSpace(*in.Address)
		}
		if in.Role != nil {
			if !in.Role.Valid() {
				return domain.ErrInvalidRole
			}
			changed := *in.Role != u.Role
			u.Role = *in.Role
			if changed && u.Role != domain.RoleStoreOwner {
				if err := s.stores.ClearOwner(ctx, u.ID); err != nil {
					return err
				}
				u.StoreID = nil
			}
		}
		if in.StoreID != nil {
			if u.Role != domain.RoleStoreOwner {
				return domain.Invalid("store_id can only be set for store owners")
			}
			store, err := s.stores.FindByIDForUpdate(ctx, *in.StoreID)
			if err != nil {
				return err
			}
			if !store.OwnedBy(u.ID) {
				// The store's previous owner reverts to a plain user and any
				// store u owned before is left without an owner.
				if _, err := s.users.ResetStoreOwners(ctx, store.ID); err != nil {
					return err
				}
				if err := s.stores.ClearOwner(ctx, u.ID); err != nil {
					return err
				}
				store.OwnerID = &u.ID
				if err := s.stores.Update(ctx, store); err != nil {
					return err
				}
			}
			u.StoreID = &store.ID
		}

		if err := s.users.Update(ctx, u); err != nil {
			return err
		}
		if in.Password != nil {
			hash, err := hashPassword(*in.Password)
			if err != nil {
				return err
			}
			if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
				return err
			}
			u.PasswordHash = hash
		}

		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	invalidateStats(ctx, s.cache, s.log)

	s.log.Info().Int64("user_id", id).Int64("by", p.UserID).Msg("user updated")
	return updated, nil
}

// Delete removes a user together with their ratings, recomputing every store
// they had rated, and detaches any store they owned.
func (s *UserService) Delete(ctx context.Context, p policy.Principal, id int64) error {
	if err := policy.Authorize(p, policy.DeleteUser, policy.Resource{}); err != nil {
		return err
	}
	if id == p.UserID {
		return domain.Invalid("you cannot delete your own account")
	}

	var affected []int64
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.users.FindByID(ctx, id); err != nil {
			return err
		}

		storeIDs, err := s.ratings.StoreIDsByUser(ctx, id)
		if err != nil {
			return err
		}
		// Lock in id order so concurrent deletions cannot deadlock.
		slices.Sort(storeIDs)
		for _, sid := range storeIDs {
			if _, err := s.stores.FindByIDForUpdate(ctx, sid); err != nil {
				return err
			}
		}

		if err := s.ratings.DeleteByUser(ctx, id); err != nil {
			return err
		}
		for _, sid := range storeIDs {
			if _, err := recomputeAggregate(ctx, s.stores, s.ratings, sid); err != nil {
				return err
			}
		}

		if err := s.stores.ClearOwner(ctx, id); err != nil {
			return err
		}
		if err := s.users.Delete(ctx, id); err != nil {
			return err
		}
		affected = storeIDs
		return nil
	})
	if err != nil {
		return err
	}
	invalidateStats(ctx, s.cache, s.log)

	s.log.Info().Int64("user_id", id).Int("stores_recomputed", len(affected)).Int64("by", p.UserID).Msg("user deleted")
	return nil
}

// DashboardStats returns the cached summary, computing and caching it on a miss.
func (s *UserService) DashboardStats(ctx context.Context, p policy.Principal) (*domain.DashboardStats, error) {
	if err := policy.Authorize(p, policy.ManageUsers, policy.Resource{}); err != nil {
		return nil, err
	}

	cached, gen, ok, err := s.cache.Get(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("dashboard stats cache read failed")
	} else if ok {
		return cached, nil
	}

	var (
		byRole  map[domain.Role]int64
		stores  int64
		ratings domain.Totals
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byRole, err = s.users.CountByRole(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stores, err = s.stores.Count(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		ratings, err = s.ratings.Totals(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}

	stats := domain.NewDashboardStats(byRole, stores, ratings)
	// Dropped by the cache if a mutation invalidated it since gen was read.
	if err := s.cache.Set(ctx, stats, gen); err != nil {
		s.log.Warn().Err(err).Msg("dashboard stats cache write failed")
	}
	return stats, nil
}

func (s *UserService) EnsureAdmin(ctx context.Context, seed ports.AdminSeed) (bool, error) {
	exists, err := s.users.ExistsWithRole(ctx, domain.RoleAdmin)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	admin, err := s.newUser(seed.Name, seed.Email, seed.Password, seed.Address, domain.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("admin seed: %w", err)
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return false, err
	}

	s.log.Info().Str("email", admin.Email).Msg("default administrator created")
	return true, nil
}

func (s *UserService) newUser(name, email, password, address string, role domain.Role) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = domain.NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, domain.Invalid("name, email and password are required")
	}
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	return &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Address:      strings.TrimSpace(address),
		Role:         role,
	}, nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return domain.ErrEmailTaken
	case errors.Is(err, domain.ErrUserNotFound):
		return nil
	default:
		return err
	}
}
