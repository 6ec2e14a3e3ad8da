// Package pricing turns an amount, a loyalty rank and a points request into
// what the customer pays and earns. Everything here is pure.
package pricing

import (
	"fms/src/types"
)

type Policy struct {
	// ExchangeValue is the money one redeemed point is worth.
	ExchangeValue int64
	// EarnRate is the money spent per point earned.
	EarnRate int64
	// RankDiscounts maps a rank to a whole discount percentage.
	RankDiscounts map[types.Rank]int64
	// RankThresholds lists the minimum points balance per rank, lowest first.
	RankThresholds []RankThreshold
}

type RankThreshold struct {
	Rank      types.Rank
	MinPoints int64
}

type Result struct {
	FinalAmount     int64 `json:"final_amount"`
	Discount        int64 `json:"discount"`
	PointsEarned    int64 `json:"points_earned"`
	FinalPointsUsed int64 `json:"final_points_used"`
}

func DefaultPolicy() Policy {
	return Policy{
		ExchangeValue: 1000,
		EarnRate:      10000,
		RankDiscounts: map[types.Rank]int64{
			types.RANK_BRONZE:  0,
			types.RANK_SILVER:  5,
			types.RANK_GOLD:    10,
			types.RANK_DIAMOND: 15,
		},
		RankThresholds: []RankThreshold{
			{Rank: types.RANK_BRONZE, MinPoints: 0},
			{Rank: types.RANK_SILVER, MinPoints: 1000},
			{Rank: types.RANK_GOLD, MinPoints: 5000},
			{Rank: types.RANK_DIAMOND, MinPoints: 20000},
		},
	}
}

// DiscountPercent resolves a rank. Unknown ranks get the lowest tier.
func (p Policy) DiscountPercent(rank types.Rank) int64 {
	if pct, ok := p.RankDiscounts[rank]; ok {
		return pct
	}
	lowest := int64(-1)
	for _, pct := range p.RankDiscounts {
		if lowest < 0 || pct < lowest {
			lowest = pct
		}
	}
	if lowest < 0 {
		return 0
	}
	return lowest
}

// MaxRedeemable is the number of points that can cover amount, rounded up.
func (p Policy) MaxRedeemable(amount int64) int64 {
	if p.ExchangeValue <= 0 || amount <= 0 {
		return 0
	}
	return (amount + p.ExchangeValue - 1) / p.ExchangeValue
}

// ComputePayment applies the rank discount, then redeems points. A request
// for more points than the amount can absorb is clamped, not rejected.
func (p Policy) ComputePayment(amount int64, rank types.Rank, pointsRequested int64) Result {
	if amount < 0 {
		amount = 0
	}
	if pointsRequested < 0 {
		pointsRequested = 0
	}
	discount := amount * p.DiscountPercent(rank) / 100
	net := amount - discount

	used := min(pointsRequested, p.MaxRedeemable(net))
	final := max(0, net-used*p.ExchangeValue)

	var earned int64
	if p.EarnRate > 0 {
		earned = final / p.EarnRate
	}
	return Result{
		FinalAmount:     final,
		Discount:        discount,
		PointsEarned:    earned,
		FinalPointsUsed: used,
	}
}

// RankForPoints picks the highest rank whose threshold the balance reaches.
func (p Policy) RankForPoints(points int64) types.Rank {
	rank := types.RANK_BRONZE
	best := int64(-1)
	for _, t := range p.RankThresholds {
		if points >= t.MinPoints && t.MinPoints > best {
			rank = t.Rank
			best = t.MinPoints
		}
	}
	return rank
}

// VAT is the tax on base at a whole percentage, rounded down.
func VAT(base, percent int64) int64 {
	if base <= 0 || percent <= 0 {
		return 0
	}
	return base * percent / 100
}

// ReservationCharges prices a time-based reservation: unit price times units
// plus a flat service charge, then VAT on top.
func ReservationCharges(unitPrice int64, units int, serviceCharge, vatPercent int64) (base, vat int64) {
	base = unitPrice*int64(units) + serviceCharge
	return base, VAT(base, vatPercent)
}

func ReservationAmount(unitPrice int64, units int, serviceCharge, vatPercent int64) int64 {
	base, vat := ReservationCharges(unitPrice, units, serviceCharge, vatPercent)
	return base + vat
}
