package model

import "time"

// Booking statuses.  Pending and confirmed bookings hold one unit of the
// car's inventory; cancelled and completed bookings do not.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"
)

// ValidBookingStatus reports whether s is one of the four booking statuses.
func ValidBookingStatus(s string) bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// Booking records one rental of one unit of a car.  Amount and CarID are
// fixed at creation; only Status changes afterwards.
//
// Fields:
//  ID            – primary key identifier.
//  UserID        – renting user (not enforced as a foreign key).
//  CarID         – rented car.
//  StartDate     – first rental day (YYYY-MM-DD).
//  EndDate       – last rental day (YYYY-MM-DD).
//  StartTime     – pickup time (HH:MM).
//  EndTime       – return time (HH:MM).
//  TotalAmount   – price computed by the storefront.
//  NeedDriver    – whether a driver was requested.
//  DriverContact – contact number for the driver request (nullable).
//  Status        – pending, confirmed, cancelled or completed.
//  CreatedAt     – creation timestamp.
type Booking struct {
	ID            uint64    `json:"id"`                      // bookings.id
	UserID        uint64    `json:"userId"`                  // bookings.user_id
	CarID         uint64    `json:"carId"`                   // bookings.car_id
	StartDate     string    `json:"startDate"`               // bookings.start_date
	EndDate       string    `json:"endDate"`                 // bookings.end_date
	StartTime     string    `json:"startTime"`               // bookings.start_time
	EndTime       string    `json:"endTime"`                 // bookings.end_time
	TotalAmount   float64   `json:"totalAmount"`             // bookings.total_amount
	NeedDriver    bool      `json:"needDriver"`              // bookings.need_driver
	DriverContact *string   `json:"driverContact,omitempty"` // bookings.driver_contact (nullable)
	Status        string    `json:"status"`                  // bookings.status
	CreatedAt     time.Time `json:"createdAt"`               // bookings.created_at
}

// IsActive reports whether the booking counts against its car's inventory.
func (b Booking) IsActive() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed
}
