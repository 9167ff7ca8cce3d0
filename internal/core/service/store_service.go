package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/storerating/rating-api/internal/core/domain"
	"github.com/storerating/rating-api/internal/core/policy"
	"github.com/storerating/rating-api/internal/core/ports"
)

type StoreService struct {
	tx      ports.TxManager
	users   ports.UserRepository
	stores  ports.StoreRepository
	ratings ports.RatingRepository
	cache   ports.StatsCache
	log     zerolog.Logger
}

func NewStoreService(
	tx ports.TxManager,
	users ports.UserRepository,
	stores ports.StoreRepository,
	ratings ports.RatingRepository,
	cache ports.StatsCache,
	log zerolog.Logger,
) *StoreService {
	if cache == nil {
		cache = NopStatsCache{}
	}
	return &StoreService{tx: tx, users: users, stores: stores, ratings: ratings, cache: cache, log: log}
}

// List returns the stores matching filter, best rated first.
func (s *StoreService) List(ctx context.Context, filter ports.ListStoresFilter) ([]*ports.StoreListItem, error) {
	if filter.MinRating != nil && (*filter.MinRating < 0 || *filter.MinRating > domain.MaxRating) {
		return nil, domain.Invalid("minRating must be between 0 and 5")
	}

	stores, err := s.stores.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	owners := make(map[int64]*domain.UserSummary)
	items := make([]*ports.StoreListItem, 0, len(stores))
	for _, st := range stores {
		item := &ports.StoreListItem{Store: st}
		if st.OwnerID != nil {
			owner, ok := owners[*st.OwnerID]
			if !ok {
				owner, err = s.ownerSummary(ctx, *st.OwnerID)
				if err != nil {
					return nil, err
				}
				owners[*st.OwnerID] = owner
			}
			item.Owner = owner
		}
		items = append(items, item)
	}
	return items, nil
}

// Get returns a store with its owner and every rating.
func (s *StoreService) Get(ctx context.Context, id int64) (*ports.StoreDetail, error) {
	store, err := s.stores.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, store, nil)
}

// Create inserts a store. A non-admin caller may only create a store for
// themselves and becomes its store_owner in the same transaction.
func (s *StoreService) Create(ctx context.Context, p policy.Principal, in ports.CreateStoreInput) (*domain.Store, error) {
	ownerID := p.UserID
	if in.OwnerID != nil {
		ownerID = *in.OwnerID
	}
	if err := policy.Authorize(p, policy.CreateStore, policy.Owner(ownerID)); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	email := domain.NormalizeEmail(in.Email)
	if name == "" || email == "" {
		return nil, domain.Invalid("name and email are required")
	}

	store := &domain.Store{
		Name:    name,
		Email:   email,
		Address: strings.TrimSpace(in.Address),
		OwnerID: &ownerID,
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		owner, err := s.users.FindByID(ctx, ownerID)
		if err != nil {
			return err
		}
		if owner.Role == domain.RoleStoreOwner && owner.StoreID != nil {
			return domain.ErrAlreadyOwner
		}
		if err := s.ensureStoreEmailFree(ctx, email); err != nil {
			return err
		}

		if err := s.stores.Create(ctx, store); err != nil {
			return err
		}

		role := owner.Role
		owner.PromoteToOwner(store.ID)
		if owner.Role != role {
			return s.users.Update(ctx, owner)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	invalidateStats(ctx, s.cache, s.log)

	s.log.Info().Int64("store_id", store.ID).Int64("owner_id", ownerID).Int64("by", p.UserID).Msg("store created")
	return store, nil
}

// Update applies the non-nil fields of in. Ownership is checked against the
// caller's persisted role, so a freshly promoted owner does not need a new token.
func (s *StoreService) Update(ctx context.Context, p policy.Principal, id int64, in ports.UpdateStoreInput) (*domain.Store, error) {
	var updated *domain.Store
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		actor, err := s.currentPrincipal(ctx, p)
		if err != nil {
			return err
		}

		store, err := s.stores.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := policy.Authorize(actor, policy.UpdateStore, policy.Store(store)); err != nil {
			return err
		}

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return domain.Invalid("name cannot be empty")
			}
			store.Name = name
		}
		if in.Email != nil {
			email := domain.NormalizeEmail(*in.Email)
			if email == "" {
				return domain.Invalid("email cannot be empty")
			}
			if email != store.Email {
				if err := s.ensureStoreEmailFree(ctx, email); err != nil {
					return err
				}
				store.Email = email
			}
		}
		if in.Address != nil {
			store.Address = strings.TrimSpace(*in.Address)
		}

		if err := s.stores.Update(ctx, store); err != nil {
			return err
		}
		updated = store
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("store_id", id).Int64("by", p.UserID).Msg("store updated")
	return updated, nil
}

// Delete removes a store and its ratings; every user pointing at it reverts
// to a plain user.
func (s *StoreService) Delete(ctx context.Context, p policy.Principal, id int64) error {
	if err := policy.Authorize(p, policy.DeleteStore, policy.Resource{}); err != nil {
		return err
	}

	var reset int64
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.stores.FindByIDForUpdate(ctx, id); err != nil {
			return err
		}

		// Owners are reset before the store row goes away, otherwise the
		// store_id foreign key would already have been nulled.
		n, err := s.users.ResetStoreOwners(ctx, id)
		if err != nil {
			return err
		}
		if err := s.ratings.DeleteByStore(ctx, id); err != nil {
			return err
		}
		if err := s.stores.Delete(ctx, id); err != nil {
			return err
		}
		reset = n
		return nil
	})
	if err != nil {
		return err
	}
	invalidateStats(ctx, s.cache, s.log)

	s.log.Info().Int64("store_id", id).Int64("owners_reset", reset).Int64("by", p.UserID).Msg("store deleted")
	return nil
}

// OwnerStores returns the caller's stores with their ratings.
func (s *StoreService) OwnerStores(ctx context.Context, p policy.Principal) ([]*ports.StoreDetail, error) {
	if err := policy.Authorize(p, policy.ViewOwnerDashboard, policy.Resource{}); err != nil {
		return nil, err
	}

	owner, err := s.users.FindByID(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	stores, err := s.stores.ListByOwner(ctx, p.UserID)
	if err != nil {
		return nil, err
	}

	details := make([]*ports.StoreDetail, 0, len(stores))
	for _, st := range stores {
		d, err := s.detail(ctx, st, owner.Summary())
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, nil
}

// detail assembles the full store view. A nil owner is looked up.
func (s *StoreService) detail(ctx context.Context, store *domain.Store, owner *domain.UserSummary) (*ports.StoreDetail, error) {
	if owner == nil && store.OwnerID != nil {
		var err error
		owner, err = s.ownerSummary(ctx, *store.OwnerID)
		if err != nil {
			return nil, err
		}
	}

	ratings, err := s.ratings.ListByStore(ctx, store.ID)
	if err != nil {
		return nil, err
	}
	return &ports.StoreDetail{Store: store, Owner: owner, Ratings: ratings}, nil
}

// ownerSummary returns nil for an owner that no longer exists.
func (s *StoreService) ownerSummary(ctx context.Context, id int64) (*domain.UserSummary, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return u.Summary(), nil
}

func (s *StoreService) currentPrincipal(ctx context.Context, p policy.Principal) (policy.Principal, error) {
	u, err := s.users.FindByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return policy.Principal{}, domain.ErrInvalidToken
		}
		return policy.Principal{}, err
	}
	return policy.Principal{UserID: u.ID, Role: u.Role}, nil
}

func (s *StoreService) ensureStoreEmailFree(ctx context.Context, email string) error {
	_, err := s.stores.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return domain.ErrStoreEmailTaken
	case errors.Is(err, domain.ErrStoreNotFound):
		return nil
	default:
		return err
	}
}
