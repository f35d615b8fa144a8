// Package analytics derives the admin dashboard figures from full scans of
// the booking, car and user collections.  Nothing here is persisted and
// every function is deterministic for a given reference time.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/iliyamo/car-rental-booking/internal/model"
)

// Options sizes the trailing windows.
type Options struct {
	Months int // monthly revenue and user growth window
	Days   int // daily booking trend window
	TopN   int // top cars by revenue
}

// DefaultOptions mirrors the console: 12 months, 30 days, top 5.
var DefaultOptions = Options{Months: 12, Days: 30, TopN: 5}

type MonthRevenue struct {
	Month    string  `json:"month"` // short month name
	Year     int     `json:"year"`
	Key      string  `json:"key"` // YYYY-MM
	Revenue  float64 `json:"revenue"`
	Bookings int     `json:"bookings"`
}

type CarUtilization struct {
	CarID       uint64  `json:"carId"`
	Name        string  `json:"name"`
	Utilization int     `json:"utilization"` // percent, 0..100
	Bookings    int     `json:"bookings"`
	Revenue     float64 `json:"revenue"`
}

type DayCount struct {
	Date     string `json:"date"` // YYYY-MM-DD
	Label    string `json:"label"`
	Bookings int    `json:"bookings"`
}

type MonthUsers struct {
	Month string `json:"month"`
	Year  int    `json:"year"`
	Key   string `json:"key"`
	Users int    `json:"users"`
}

type CategoryCount struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Report is the full analytics payload.
type Report struct {
	GeneratedAt          time.Time        `json:"generatedAt"`
	MonthlyRevenue       []MonthRevenue   `json:"monthlyRevenue"`
	RevenueGrowth        float64          `json:"revenueGrowth"`
	BookingGrowth        float64          `json:"bookingGrowth"`
	CarUtilization       []CarUtilization `json:"carUtilization"`
	TopCars              []CarUtilization `json:"topCars"`
	BookingTrends        []DayCount       `json:"bookingTrends"`
	UserGrowth           []MonthUsers     `json:"userGrowth"`
	CategoryDistribution []CategoryCount  `json:"categoryDistribution"`
	Totals               Totals           `json:"totals"`
}

// Totals echoes the size of the scanned collections.
type Totals struct {
	Bookings int `json:"bookings"`
	Cars     int `json:"cars"`
	Users    int `json:"users"`
}

// Build computes every series relative to now.
func Build(bookings []model.Booking, cars []model.Car, users []model.User, now time.Time, opt Options) Report {
	if opt.Months < 1 {
		opt.Months = DefaultOptions.Months
	}
	if opt.Days < 1 {
		opt.Days = DefaultOptions.Days
	}
	if opt.TopN < 1 {
		opt.TopN = DefaultOptions.TopN
	}
	monthly := MonthlyRevenue(bookings, now, opt.Months)
	util := Utilization(cars, bookings)
	rep := Report{
		GeneratedAt:          now,
		MonthlyRevenue:       monthly,
		CarUtilization:       util,
		TopCars:              TopCars(util, opt.TopN),
		BookingTrends:        DailyBookings(bookings, now, opt.Days),
		UserGrowth:           UserGrowth(users, now, opt.Months),
		CategoryDistribution: CategoryDistribution(cars),
		Totals:               Totals{Bookings: len(bookings), Cars: len(cars), Users: len(users)},
	}
	if n := len(monthly); n >= 2 {
		rep.RevenueGrowth = Growth(monthly[n-2].Revenue, monthly[n-1].Revenue)
		rep.BookingGrowth = Growth(float64(monthly[n-2].Bookings), float64(monthly[n-1].Bookings))
	}
	return rep
}

// monthStarts returns the first instant of each of the n months ending with
// the month of now, oldest first.
func monthStarts(now time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	for i := n - 1; i >= 0; i-- {
		out = append(out, time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, now.Location()))
	}
	return out
}

func monthKey(t time.Time) string { return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month())) }

// MonthlyRevenue buckets bookings by the calendar month of their creation
// time over the trailing window.  All statuses count.
func MonthlyRevenue(bookings []model.Booking, now time.Time, months int) []MonthRevenue {
	starts := monthStarts(now, months)
	out := make([]MonthRevenue, len(starts))
	index := make(map[string]int, len(starts))
	for i, s := range starts {
		k := monthKey(s)
		index[k] = i
		out[i] = MonthRevenue{Month: s.Format("Jan"), Year: s.Year(), Key: k}
	}
	for _, b := range bookings {
		if b.CreatedAt.IsZero() {
			continue
		}
		if i, ok := index[monthKey(b.CreatedAt.In(now.Location()))]; ok {
			out[i].Revenue += b.TotalAmount
			out[i].Bookings++
		}
	}
	return out
}

// Utilization reports, per car, the booked-out share of its quantity and
// the revenue of its active bookings.
func Utilization(cars []model.Car, bookings []model.Booking) []CarUtilization {
	type agg struct {
		n   int
		rev float64
	}
	byCar := make(map[uint64]agg)
	for _, b := range bookings {
		if !b.IsActive() {
			continue
		}
		a := byCar[b.CarID]
		a.n++
		a.rev += b.TotalAmount
		byCar[b.CarID] = a
	}
	out := make([]CarUtilization, 0, len(cars))
	for _, c := range cars {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("Car %d", c.ID)
		}
		a := byCar[c.ID]
		out = append(out, CarUtilization{
			CarID:       c.ID,
			Name:        name,
			Utilization: utilizationPercent(c.Quantity, c.Available),
			Bookings:    a.n,
			Revenue:     a.rev,
		})
	}
	return out
}

func utilizationPercent(quantity, available int) int {
	if quantity <= 0 {
		return 0
	}
	pct := float64(quantity-available) / float64(quantity) * 100
	return int(math.Round(math.Max(0, math.Min(100, pct))))
}

// TopCars returns the n highest-revenue entries.  Ties keep input order.
func TopCars(util []CarUtilization, n int) []CarUtilization {
	sorted := append([]CarUtilization(nil), util...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Revenue > sorted[j].Revenue })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// DailyBookings counts bookings per calendar day over the trailing window
// ending today.
func DailyBookings(bookings []model.Booking, now time.Time, days int) []DayCount {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	out := make([]DayCount, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		d := today.AddDate(0, 0, i-(days-1))
		k := d.Format(time.DateOnly)
		index[k] = i
		out[i] = DayCount{Date: k, Label: d.Format("Jan 2")}
	}
	for _, b := range bookings {
		if b.CreatedAt.IsZero() {
			continue
		}
		if i, ok := index[b.CreatedAt.In(now.Location()).Format(time.DateOnly)]; ok {
			out[i].Bookings++
		}
	}
	return out
}

// UserGrowth counts new users per month by join date.
func UserGrowth(users []model.User, now time.Time, months int) []MonthUsers {
	starts := monthStarts(now, months)
	out := make([]MonthUsers, len(starts))
	index := make(map[string]int, len(starts))
	for i, s := range starts {
		k := monthKey(s)
		index[k] = i
		out[i] = MonthUsers{Month: s.Format("Jan"), Year: s.Year(), Key: k}
	}
	for _, u := range users {
		if u.JoinDate.IsZero() {
			continue
		}
		if i, ok := index[monthKey(u.JoinDate.In(now.Location()))]; ok {
			out[i].Users++
		}
	}
	return out
}

// CategoryDistribution counts cars per category label.  A car without a
// category falls back to its type, then to "Other".  Labels appear in the
// order they are first seen.
func CategoryDistribution(cars []model.Car) []CategoryCount {
	out := []CategoryCount{}
	index := map[string]int{}
	for _, c := range cars {
		label := c.Category
		if label == "" {
			label = c.Type
		}
		if label == "" {
			label = "Other"
		}
		if i, ok := index[label]; ok {
			out[i].Value++
			continue
		}
		index[label] = len(out)
		out = append(out, CategoryCount{Name: label, Value: 1})
	}
	return out
}

// Growth is the percentage change from prev to cur, or 0 when prev is 0.
func Growth(prev, cur float64) float64 {
	if prev == 0 {
		return 0
	}
	return (cur - prev) / prev * 100
}
