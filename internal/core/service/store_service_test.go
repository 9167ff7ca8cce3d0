package service

import (
	"context"
	"errors"
	"testing"

	"github.com/storerating/rating-api/internal/core/domain"
	"github.com/storerating/rating-api/internal/core/ports"
)

func TestStoreService_Create_PromotesCaller(t *testing.T) {
	f := newFixture()
	u := f.db.seedUser("Founder", domain.RoleUser)

	store, err := f.stores.Create(context.Background(), as(u, domain.RoleUser), ports.CreateStoreInput{
		Name:    "Fresh Greens",
		Email:   "Greens@Example.com",
		Address: "12 Market Road",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if !store.OwnedBy(u) {
		t.Fatalf("expected caller to own the store, got owner %v", store.OwnerID)
	}
	if store.Email != "greens@example.com" {
		t.Fatalf("expected normalized email, got %q", store.Email)
	}
	if store.AverageRating != 0 || store.TotalRatings != 0 {
		t.Fatalf("new store must start with an empty aggregate")
	}

	owner := f.db.user(u)
	if owner.Role != domain.RoleStoreOwner {
		t.Fatalf("expected caller promoted to store_owner, got %s", owner.Role)
	}
	if owner.StoreID == nil || *owner.StoreID != store.ID {
		t.Fatalf("expected owner.store_id = %d, got %v", store.ID, owner.StoreID)
	}
}

func TestStoreService_Create_ForAnotherUserRequiresAdmin(t *testing.T) {
	f := newFixture()
	u := f.db.seedUser("Caller", domain.RoleUser)
	other := f.db.seedUser("Target", domain.RoleUser)

	_, err := f.stores.Create(context.Background(), as(u, domain.RoleUser), ports.CreateStoreInput{
		Name: "Not Mine", Email: "notmine@example.com", OwnerID: &other,
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestStoreService_Create_ByAdminForUser(t *testing.T) {
	f := newFixture()
	admin := f.db.seedUser("Admin", domain.RoleAdmin)
	target := f.db.seedUser("Target", domain.RoleUser)

	store, err := f.stores.Create(context.Background(), as(admin, domain.RoleAdmin), ports.CreateStoreInput{
		Name: "Admin Made", Email: "adminmade@example.com", OwnerID: &target,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if got := f.db.user(target); got.Role != domain.RoleStoreOwner || got.StoreID == nil || *got.StoreID != store.ID {
		t.Fatalf("expected target promoted to owner of %d, got %+v", store.ID, got)
	}
}

func TestStoreService_Create_AdminKeepsRole(t *testing.T) {
	f := newFixture()
	admin := f.db.seedUser("Admin", domain.RoleAdmin)

	if _, err := f.stores.Create(context.Background(), as(admin, domain.RoleAdmin), ports.CreateStoreInput{
		Name: "HQ", Email: "hq@example.com",
	}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if got := f.db.user(admin); got.Role != domain.RoleAdmin {
		t.Fatalf("admin must keep their role, got %s", got.Role)
	}
}

func TestStoreService_Create_OwnerAlreadyHasStore(t *testing.T) {
	f := newFixture()
	u := f.db.seedUser("Owner", domain.RoleUser)
	f.db.seedStore("First", u)

	_, err := f.stores.Create(context.Background(), as(u, domain.RoleStoreOwner), ports.CreateStoreInput{
		Name: "Second", Email: "second@example.com",
	})
	if !errors.Is(err, domain.ErrAlreadyOwner) {
		t.Fatalf("expected ErrAlreadyOwner, got %v", err)
	}
}

func TestStoreService_Create_Validation(t *testing.T) {
	f := newFixture()
	u := f.db.seedUser("Caller", domain.RoleUser)

	_, err := f.stores.Create(context.Background(), as(u, domain.RoleUser), ports.CreateStoreInput{Name: "  ", Email: "x@example.com"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestStoreService_Create_DuplicateEmail(t *testing.T) {
	f := newFixture()
	a := f.db.seedUser("Alpha", domain.RoleUser)
	b := f.db.seedUser("Beta", domain.RoleUser)

	if _, err := f.stores.Create(context.Background(), as(a, domain.RoleUser), ports.CreateStoreInput{
		Name: "One", Email: "same@example.com",
	}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	_, err := f.stores.Create(context.Background(), as(b, domain.RoleUser), ports.CreateStoreInput{
		Name: "Two", Email: "SAME@example.com",
	})
	if !errors.Is(err, domain.ErrStoreEmailTaken) {
		t.Fatalf("expected ErrStoreEmailTaken, got %v", err)
	}
	if got := f.db.user(b); got.Role != domain.RoleUser {
		t.Fatalf("failed create must not promote the caller, got %s", got.Role)
	}
}

func TestStoreService_Update_ByOwner(t *testing.T) {
	f := newFixture()
	owner := f.db.seedUser("Owner", domain.RoleUser)
	storeID := f.db.seedStore("Old Name", owner)
	before := f.db.store(storeID)

	updated, err := f.stores.Update(context.Background(), as(owner, domain.RoleStoreOwner), storeID, ports.UpdateStoreInput{
		Name: ptr("New Name"),
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Name != "New Name" {
		t.Fatalf("expected name updated, got %q", updated.Name)
	}
	if updated.Email != before.Email || updated.Address != before.Address {
		t.Fatalf("fields not in the update must be unchanged: %+v", updated)
	}
}

func TestStoreService_Update_OtherOwnerForbidden(t *testing.T) {
	f := newFixture()
	a := f.db.seedUser("OwnerA", domain.RoleUser)
	b := f.db.seedUser("OwnerB", domain.RoleUser)
	storeA := f.db.seedStore("StoreA", a)
	f.db.seedStore("StoreB", b)

	_, err := f.stores.Update(context.Background(), as(b, domain.RoleStoreOwner), storeA, ports.UpdateStoreInput{
		Name: ptr("Hijacked"),
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if got := f.db.store(storeA); got.Name != "StoreA" {
		t.Fatalf("store must be unchanged, got %q", got.Name)
	}
}

func TestStoreService_Update_PlainUserForbidden(t *testing.T) {
	f := newFixture()
	owner := f.db.seedUser("Owner", domain.RoleUser)
	storeID := f.db.seedStore("Guarded", owner)
	u := f.db.seedUser("Visitor", domain.RoleUser)

	_, err := f.stores.Update(context.Background(), as(u, domain.RoleUser), storeID, ports.UpdateStoreInput{Name: ptr("Nope")})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestStoreService_Update_UsesPersistedRole(t *testing.T) {
	f := newFixture()
	u := f.db.seedUser("Fresh", domain.RoleUser)
	store, err := f.stores.Create(context.Background(), as(u, domain.RoleUser), ports.CreateStoreInput{
		Name: "Just Opened", Email: "opened@example.com",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	// Token still says "user"; the stored role is store_owner.
	if _, err := f.stores.Update(context.Background(), as(u, domain.RoleUser), store.ID, ports.UpdateStoreInput{
		Address: ptr("34 New Street"),
	}); err != nil {
		t.Fatalf("expected promoted owner to update their store, got %v", err)
	}
}

func TestStoreService_Update_EmailConflict(t *testing.T) {
	f := newFixture()
	admin := f.db.seedUser("Admin", domain.RoleAdmin)
	a := f.db.seedUser("A", domain.RoleUser)
	b := f.db.seedUser("B", domain.RoleUser)
	storeA := f.db.seedStore("Alpha", a)
	storeB := f.db.seedStore("Beta", b)

	taken := f.db.store(storeB).Email
	_, err := f.stores.Update(context.Background(), as(admin, domain.RoleAdmin), storeA, ports.UpdateStoreInput{Email: &taken})
	if !errors.Is(err, domain.ErrStoreEmailTaken) {
		t.Fatalf("expected ErrStoreEmailTaken, got %v", err)
	}
}

func TestStoreService_Update_NotFound(t *testing.T) {
	f := newFixture()
	admin := f.db.seedUser("Admin", domain.RoleAdmin)

	_, err := f.stores.Update(context.Background(), as(admin, domain.RoleAdmin), 999, ports.UpdateStoreInput{Name: ptr("x")})
	if !errors.Is(err, domain.ErrStoreNotFound) {
		t.Fatalf("expected ErrStoreNotFound, got %v", err)
	}
}

func TestStoreService_Delete_ResetsOwnersAndRatings(t *testing.T) {
	f := newFixture()
	admin := f.db.seedUser("Admin", domain.RoleAdmin)
	owner := f.db.seedUser("Owner", domain.RoleUser)
	storeID := f.db.seedStore("Closing", owner)
	rater := f.db.seedUser("Rater", domain.RoleUser)
	submit(t, f, rater, storeID, 4)

	if err := f.stores.Delete(context.Background(), as(admin, domain.RoleAdmin), storeID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if f.db.store(storeID) != nil {
		t.Fatalf("expected store to be gone")
	}
	if n := f.db.ratingCount(storeID); n != 0 {
		t.Fatalf("expected ratings removed, got %d", n)
	}
	got := f.db.user(owner)
	if got.Role != domain.RoleUser || got.StoreID != nil {
		t.Fatalf("expected owner reset to user with no store, got %+v", got)
	}
}

func TestStoreService_Delete_RequiresAdmin(t *testing.T) {
	f := newFixture()
	owner := f.db.seedUser("Owner", domain.RoleUser)
	storeID := f.db.seedStore("Mine", owner)

	err := f.stores.Delete(context.Background(), as(owner, domain.RoleStoreOwner), storeID)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if f.db.store(storeID) == nil {
		t.Fatalf("store must survive a forbidden delete")
	}
}

func TestStoreService_List_FiltersAndOrdersByRating(t *testing.T) {
	f := newFixture()
	owners := make([]int64, 3)
	stores := make([]int64, 3)
	for i, name := range []string{"Apple Cart", "Berry Barn", "Apple Annex"} {
		owners[i] = f.db.seedUser("Owner"+string(rune('A'+i)), domain.RoleUser)
		stores[i] = f.db.seedStore(name, owners[i])
	}
	rater := f.db.seedUser("Rater", domain.RoleUser)
	submit(t, f, rater, stores[0], 3)
	submit(t, f, rater, stores[1], 5)
	submit(t, f, rater, stores[2], 4)

	all, err := f.stores.List(context.Background(), ports.ListStoresFilter{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(all) != 3 || all[0].ID != stores[1] || all[1].ID != stores[2] || all[2].ID != stores[0] {
		t.Fatalf("expected stores ordered by average desc, got %v", ids(all))
	}
	if all[0].Owner == nil || all[0].Owner.ID != owners[1] {
		t.Fatalf("expected owner summary attached, got %+v", all[0].Owner)
	}

	apples, err := f.stores.List(context.Background(), ports.ListStoresFilter{Name: "apple"})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(apples) != 2 {
		t.Fatalf("expected 2 apple stores, got %v", ids(apples))
	}

	good, err := f.stores.List(context.Background(), ports.ListStoresFilter{MinRating: ptr(4.0)})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(good) != 2 {
		t.Fatalf("expected 2 stores rated >= 4, got %v", ids(good))
	}
}

func TestStoreService_List_InvalidMinRating(t *testing.T) {
	f := newFixture()
	bad := 7.5
	if _, err := f.stores.List(context.Background(), ports.ListStoresFilter{MinRating: &bad}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestStoreService_Get_IncludesRatingsAndOwner(t *testing.T) {
	f := newFixture()
	owner := f.db.seedUser("Owner", domain.RoleUser)
	storeID := f.db.seedStore("Detail", owner)
	rater := f.db.seedUser("Rater", domain.RoleUser)
	submit(t, f, rater, storeID, 2)

	d, err := f.stores.Get(context.Background(), storeID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if d.Owner == nil || d.Owner.ID != owner {
		t.Fatalf("expected owner %d, got %+v", owner, d.Owner)
	}
	if len(d.Ratings) != 1 || d.Ratings[0].UserName != "Rater" {
		t.Fatalf("expected one rating by Rater, got %+v", d.Ratings)
	}

	if _, err := f.stores.Get(context.Background(), 999); !errors.Is(err, domain.ErrStoreNotFound) {
		t.Fatalf("expected ErrStoreNotFound, got %v", err)
	}
}

func TestStoreService_OwnerStores(t *testing.T) {
	f := newFixture()
	owner := f.db.seedUser("Owner", domain.RoleUser)
	storeID := f.db.seedStore("Owned", owner)
	other := f.db.seedUser("Other", domain.RoleUser)
	f.db.seedStore("NotOwned", other)

	stores, err := f.stores.OwnerStores(context.Background(), as(owner, domain.RoleStoreOwner))
	if err != nil {
		t.Fatalf("OwnerStores returned error: %v", err)
	}
	if len(stores) != 1 || stores[0].ID != storeID {
		t.Fatalf("expected only store %d, got %d stores", storeID, len(stores))
	}
	if stores[0].Ratings == nil {
		t.Fatalf("expected an empty ratings slice, got nil")
	}
}

func ids(items []*ports.StoreListItem) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
