package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/iliyamo/car-rental-booking/internal/model"
)

// CarRepo provides CRUD operations over the cars table.  Features are
// stored as a JSON array in a TEXT column.
type CarRepo struct {
	db *sql.DB
}

// NewCarRepo returns a new CarRepo bound to the given database.
func NewCarRepo(db *sql.DB) *CarRepo { return &CarRepo{db: db} }

const carColumns = `id, name, model, image, price_per_hour, description, quantity, available,
	category, type, transmission, seats, features, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCar(s rowScanner) (model.Car, error) {
	var (
		c        model.Car
		features sql.NullString
	)
	err := s.Scan(&c.ID, &c.Name, &c.Model, &c.Image, &c.PricePerHour, &c.Description,
		&c.Quantity, &c.Available, &c.Category, &c.Type, &c.Transmission, &c.Seats,
		&features, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return c, err
	}
	c.Features = []string{}
	if features.Valid && features.String != "" {
		if err := json.Unmarshal([]byte(features.String), &c.Features); err != nil {
			return c, err
		}
	}
	return c, nil
}

func encodeFeatures(f []string) (string, error) {
	if f == nil {
		f = []string{}
	}
	b, err := json.Marshal(f)
	return string(b), err
}

// List returns cars ordered by id, optionally narrowed by category and a
// free-text query over name and model.
func (r *CarRepo) List(ctx context.Context, f CarFilter) ([]model.Car, error) {
	q := "SELECT " + carColumns + " FROM cars"
	var (
		where []string
		args  []any
	)
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		where = append(where, "(LOWER(name) LIKE ? OR LOWER(model) LIKE ?)")
		like := "%" + strings.ToLower(s) + "%"
		args = append(args, like, like)
	}
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cars := []model.Car{}
	for rows.Next() {
		c, err := scanCar(rows)
		if err != nil {
			return nil, err
		}
		cars = append(cars, c)
	}
	return cars, rows.Err()
}

// GetByID fetches a single car.  It returns ErrCarNotFound when the id is
// unknown.
func (r *CarRepo) GetByID(ctx context.Context, id uint64) (model.Car, error) {
	c, err := scanCar(r.db.QueryRowContext(ctx, "SELECT "+carColumns+" FROM cars WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Car{}, ErrCarNotFound
	}
	return c, err
}

// Create inserts c and fills in its generated id and timestamps.
func (r *CarRepo) Create(ctx context.Context, c *model.Car) error {
	features, err := encodeFeatures(c.Features)
	if err != nil {
		return err
	}
	const q = `INSERT INTO cars (name, model, image, price_per_hour, description, quantity, available,
		category, type, transmission, seats, features) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, q, c.Name, c.Model, c.Image, c.PricePerHour, c.Description,
		c.Quantity, c.Available, c.Category, c.Type, c.Transmission, c.Seats, features)
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
	*c = created
	return nil
}

// Update applies p to the stored car and writes every column back.
func (r *CarRepo) Update(ctx context.Context, id uint64, p model.CarPatch) (model.Car, error) {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Car{}, err
	}
	p.Apply(&c)
	features, err := encodeFeatures(c.Features)
	if err != nil {
		return model.Car{}, err
	}
	const q = `UPDATE cars SET name=?, model=?, image=?, price_per_hour=?, description=?, quantity=?,
		available=?, category=?, type=?, transmission=?, seats=?, features=? WHERE id=?`
	if _, err := r.db.ExecContext(ctx, q, c.Name, c.Model, c.Image, c.PricePerHour, c.Description,
		c.Quantity, c.Available, c.Category, c.Type, c.Transmission, c.Seats, features, id); err != nil {
		return model.Car{}, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes a car.  Callers check for active bookings first.
func (r *CarRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM cars WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCarNotFound
	}
	return nil
}

func (r *CarRepo) UpdateAvailable(ctx context.Context, id uint64, available int) error {
	res, err := r.db.ExecContext(ctx, "UPDATE cars SET available = ? WHERE id = ?", available, id)
	return r.touched(ctx, res, err, id)
}

func (r *CarRepo) UpdateInventory(ctx context.Context, id uint64, quantity, available int) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE cars SET quantity = ?, available = ? WHERE id = ?", quantity, available, id)
	return r.touched(ctx, res, err, id)
}

// AdjustAvailable shifts available by delta in a single statement so
// concurrent bookings cannot lose updates.
func (r *CarRepo) AdjustAvailable(ctx context.Context, id uint64, delta int) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE cars SET available = LEAST(quantity, GREATEST(0, available + ?)) WHERE id = ?", delta, id)
	return r.touched(ctx, res, err, id)
}

// touched maps an UPDATE that matched no row to ErrCarNotFound.  MySQL
// reports 0 affected rows for an unchanged row too, so a zero count is
// confirmed with an existence check.
func (r *CarRepo) touched(ctx context.Context, res sql.Result, err error, id uint64) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists int
	err = r.db.QueryRowContext(ctx, "SELECT 1 FROM cars WHERE id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrCarNotFound
	}
	return err
}
