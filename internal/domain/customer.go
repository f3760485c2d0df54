package domain

import "time"

// Customer is a read-only snapshot of a shop customer as seen by the
// segmentation job. Visit and revenue fields are maintained by the visit
// and sales subsystems; nil means the value is unknown.
type Customer struct {
	ID        int64     `json:"customer_id" db:"customer_id"`
	ShopID    int64     `json:"shop_id" db:"shop_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// RecentVisitDate is a calendar date. Only its year, month and day are
	// meaningful; the clock and location parts are ignored.
	RecentVisitDate *time.Time `json:"recent_visit_date" db:"recent_visit_date"`
	VisitCount      *int       `json:"visit_count" db:"visit_count"`
	TotalRevenue    *int64     `json:"total_revenue" db:"total_revenue"`
}
