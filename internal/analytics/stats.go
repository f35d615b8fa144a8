package analytics

import "github.com/iliyamo/car-rental-booking/internal/model"

// Stats are the headline numbers of the admin dashboard.
type Stats struct {
	TotalCars       int     `json:"totalCars"`
	ActiveBookings  int     `json:"activeBookings"` // confirmed only
	PendingBookings int     `json:"pendingBookings"`
	TotalUsers      int     `json:"totalUsers"`
	LowStockCars    int     `json:"lowStockCars"`
	Revenue         float64 `json:"revenue"` // sum over confirmed bookings
}

// DashboardStats counts cars whose quantity is at or below lowStock as low
// stock.
func DashboardStats(bookings []model.Booking, cars []model.Car, users []model.User, lowStock int) Stats {
	s := Stats{TotalCars: len(cars), TotalUsers: len(users)}
	for _, b := range bookings {
		switch b.Status {
		case model.BookingConfirmed:
			s.ActiveBookings++
			s.Revenue += b.TotalAmount
		case model.BookingPending:
			s.PendingBookings++
		}
	}
	for _, c := range cars {
		if c.Quantity <= lowStock {
			s.LowStockCars++
		}
	}
	return s
}
