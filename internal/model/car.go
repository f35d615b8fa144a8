package model

import "time"

// Car is one fleet entry.  A single record stands for Quantity identical
// vehicles; Available is how many of them can still be booked.  The
// Available column is denormalized from the bookings table and is kept in
// step by the booking lifecycle and by reconciliation.
//
// Fields:
//  ID           – primary key identifier.
//  Name         – display name shown in the storefront.
//  Model        – manufacturer model string.
//  Image        – URL of the listing picture.
//  PricePerHour – hourly rental price.
//  Description  – free-form listing text.
//  Quantity     – total owned units (>= 0).
//  Available    – units free to book (0 <= Available <= Quantity).
//  Category     – storefront category (compact, sedan, suv, luxury, sports).
//  Type         – legacy body-type label; only used when Category is empty.
//  Transmission – automatic / manual.
//  Seats        – seat count.
//  Features     – list of feature labels.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Car struct {
	ID           uint64    `json:"id"`           // cars.id
	Name         string    `json:"name"`         // cars.name
	Model        string    `json:"model"`        // cars.model
	Image        string    `json:"image"`        // cars.image
	PricePerHour float64   `json:"pricePerHour"` // cars.price_per_hour
	Description  string    `json:"description"`  // cars.description
	Quantity     int       `json:"quantity"`     // cars.quantity
	Available    int       `json:"available"`    // cars.available
	Category     string    `json:"category"`     // cars.category
	Type         string    `json:"type,omitempty"` // cars.type
	Transmission string    `json:"transmission"` // cars.transmission
	Seats        int       `json:"seats"`        // cars.seats
	Features     []string  `json:"features"`     // cars.features (JSON array)
	CreatedAt    time.Time `json:"createdAt"`    // cars.created_at
	UpdatedAt    time.Time `json:"updatedAt"`    // cars.updated_at
}

// CarPatch carries the fields of a partial car update.  Nil pointers are
// left untouched by the store.
type CarPatch struct {
	Name         *string
	Model        *string
	Image        *string
	PricePerHour *float64
	Description  *string
	Quantity     *int
	Available    *int
	Category     *string
	Type         *string
	Transmission *string
	Seats        *int
	Features     *[]string
}

// Apply merges the patch into c.
func (p CarPatch) Apply(c *Car) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Model != nil {
		c.Model = *p.Model
	}
	if p.Image != nil {
		c.Image = *p.Image
	}
	if p.PricePerHour != nil {
		c.PricePerHour = *p.PricePerHour
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Quantity != nil {
		c.Quantity = *p.Quantity
	}
	if p.Available != nil {
		c.Available = *p.Available
	}
	if p.Category != nil {
		c.Category = *p.Category
	}
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Transmission != nil {
		c.Transmission = *p.Transmission
	}
	if p.Seats != nil {
		c.Seats = *p.Seats
	}
	if p.Features != nil {
		c.Features = append([]string(nil), (*p.Features)...)
	}
}
