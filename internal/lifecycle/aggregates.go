package lifecycle

import "github.com/Shivanand-hulikatti/conference-lifecycle/internal/model"

// Fill labels shown on dashboards and storefront cards.
const (
	FillAvailable  = "Available"
	FillAlmostFull = "Almost Full"
	FillSoldOut    = "Sold Out"

	almostFullPercent = 80
)

// CapacityFill describes how full an event is.
type CapacityFill struct {
	Confirmed int    `json:"confirmed"`
	Capacity  int    `json:"capacity"`
	Percent   int    `json:"percent"`
	Label     string `json:"label"`
}

// EventStats is the read-side summary of an event's registrations.
type EventStats struct {
	Total            int                              `json:"total"`
	CountsByStatus   map[model.RegistrationStatus]int `json:"counts_by_status"`
	CountsByPayment  map[model.PaymentStatus]int      `json:"counts_by_payment"`
	RevenueByPayment map[model.PaymentStatus]int64    `json:"revenue_by_payment"`
	CollectedCents   int64                            `json:"collected_cents"`
	OutstandingCents int64                            `json:"outstanding_cents"`
	RefundedCents    int64                            `json:"refunded_cents"`
	Fill             CapacityFill                     `json:"fill"`
}

// Fill computes the capacity fill for confirmed seats out of capacity.
func Fill(capacity, confirmed int) CapacityFill {
	f := CapacityFill{Confirmed: confirmed, Capacity: capacity}
	if capacity <= 0 {
		f.Label = FillSoldOut
		return f
	}
	f.Percent = min(confirmed*100/capacity, 100)
	switch {
	case f.Percent >= 100:
		f.Label = FillSoldOut
	case f.Percent >= almostFullPercent:
		f.Label = FillAlmostFull
	default:
		f.Label = FillAvailable
	}
	return f
}

// Summarize aggregates regs, which must all belong to ev. Cancelled
// registrations are counted but owe nothing, so they are left out of the
// outstanding total.
func Summarize(ev *model.Event, regs []model.Registration) EventStats {
	stats := EventStats{
		Total:            len(regs),
		CountsByStatus:   make(map[model.RegistrationStatus]int, len(model.RegistrationStatuses)),
		CountsByPayment:  make(map[model.PaymentStatus]int, len(model.PaymentStatuses)),
		RevenueByPayment: make(map[model.PaymentStatus]int64, len(model.PaymentStatuses)),
	}
	for _, s := range model.RegistrationStatuses {
		stats.CountsByStatus[s] = 0
	}
	for _, p := range model.PaymentStatuses {
		stats.CountsByPayment[p] = 0
		stats.RevenueByPayment[p] = 0
	}

	for _, r := range regs {
		stats.CountsByStatus[r.Status]++
		stats.CountsByPayment[r.PaymentStatus]++
		stats.RevenueByPayment[r.PaymentStatus] += r.AmountCents
		switch r.PaymentStatus {
		case model.PaymentPaid:
			stats.CollectedCents += r.AmountCents
		case model.PaymentRefunded:
			stats.RefundedCents += r.AmountCents
		case model.PaymentPending:
			if r.Status != model.RegistrationCancelled {
				stats.OutstandingCents += r.AmountCents
			}
		}
	}

	stats.Fill = Fill(ev.Capacity, stats.CountsByStatus[model.RegistrationConfirmed])
	return stats
}
