package domain

// DashboardStats is the platform-wide summary shown to administrators.
type DashboardStats struct {
	Users   UserStats   `json:"users"`
	Stores  StoreStats  `json:"stores"`
	Ratings RatingStats `json:"ratings"`
}

type UserStats struct {
	Total       int64 `json:"total"`
	Regular     int64 `json:"regular"`
	StoreOwners int64 `json:"store_owners"`
	Admins      int64 `json:"admins"`
}

type StoreStats struct {
	Total int64 `json:"total"`
}

type RatingStats struct {
	Total   int64   `json:"total"`
	Average float64 `json:"average"`
}

// NewDashboardStats assembles the summary from raw counts.
func NewDashboardStats(byRole map[Role]int64, stores int64, ratings Totals) *DashboardStats {
	users := UserStats{
		Regular:     byRole[RoleUser],
		StoreOwners: byRole[RoleStoreOwner],
		Admins:      byRole[RoleAdmin],
	}
	users.Total = users.Regular + users.StoreOwners + users.Admins

	agg := ratings.Aggregate()
	return &DashboardStats{
		Users:   users,
		Stores:  StoreStats{Total: stores},
		Ratings: RatingStats{Total: agg.Total, Average: agg.Average},
	}
}
