package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/car-rental-booking/internal/model"
)

// BookingRepo stores bookings.  Dates and times are kept in the
// YYYY-MM-DD and HH:MM text forms the API accepts; created_at is UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, user_id, car_id, start_date, end_date, start_time, end_time,
	total_amount, need_driver, driver_contact, status, created_at`

func scanBooking(s rowScanner) (model.Booking, error) {
	var (
		b       model.Booking
		contact sql.NullString
	)
	err := s.Scan(&b.ID, &b.UserID, &b.CarID, &b.StartDate, &b.EndDate, &b.StartTime, &b.EndTime,
		&b.TotalAmount, &b.NeedDriver, &contact, &b.Status, &b.CreatedAt)
	if contact.Valid {
		v := contact.String
		b.DriverContact = &v
	}
	return b, err
}

func (r *BookingRepo) query(ctx context.Context, q string, args ...any) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// List returns every booking, newest first.
func (r *BookingRepo) List(ctx context.Context) ([]model.Booking, error) {
	return r.query(ctx, "SELECT "+bookingColumns+" FROM bookings ORDER BY created_at DESC, id DESC")
}

// ListByUser returns the bookings of one user, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return r.query(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE user_id = ? ORDER BY created_at DESC, id DESC", userID)
}

// GetByID fetches a booking or returns ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrBookingNotFound
	}
	return b, err
}

// Create inserts b and reads back its id and creation time.  An empty
// status defaults to pending.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	if b.Status == "" {
		b.Status = model.BookingPending
	}
	const q = `INSERT INTO bookings (user_id, car_id, start_date, end_date, start_time, end_time,
		total_amount, need_driver, driver_contact, status) VALUES (?,?,?,?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, q, b.UserID, b.CarID, b.StartDate, b.EndDate, b.StartTime, b.EndTime,
		b.TotalAmount, b.NeedDriver, b.DriverContact, b.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*b = created
	return nil
}

// SetStatus updates the status only when it differs from the stored one,
// which makes a repeated cancellation observable to the caller.
func (r *BookingRepo) SetStatus(ctx context.Context, id uint64, status string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE bookings SET status = ? WHERE id = ? AND status <> ?", status, id, status)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	var exists int
	err = r.db.QueryRowContext(ctx, "SELECT 1 FROM bookings WHERE id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrBookingNotFound
	}
	return false, err
}

// CountActiveByCar counts the pending and confirmed bookings of a car.
func (r *BookingRepo) CountActiveByCar(ctx context.Context, carID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bookings WHERE car_id = ? AND status IN (?, ?)",
		carID, model.BookingPending, model.BookingConfirmed).Scan(&n)
	return n, err
}
