package pricing

import (
	"fms/src/types"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputePaymentRedeemsUpToAmount(t *testing.T) {
	p := DefaultPolicy()

	r := p.ComputePayment(100000, types.RANK_BRONZE, 200)

	assert.Equal(t, int64(0), r.Discount)
	assert.Equal(t, int64(100), r.FinalPointsUsed)
	assert.Equal(t, int64(0), r.FinalAmount)
	assert.Equal(t, int64(0), r.PointsEarned)
}

func TestComputePaymentRankDiscount(t *testing.T) {
	p := DefaultPolicy()

	r := p.ComputePayment(200000, types.RANK_GOLD, 0)
	assert.Equal(t, int64(20000), r.Discount)
	assert.Equal(t, int64(180000), r.FinalAmount)
	assert.Equal(t, int64(18), r.PointsEarned)

	r = p.ComputePayment(200000, types.RANK_SILVER, 30)
	assert.Equal(t, int64(10000), r.Discount)
	assert.Equal(t, int64(30), r.FinalPointsUsed)
	assert.Equal(t, int64(160000), r.FinalAmount)
	assert.Equal(t, int64(16), r.PointsEarned)
}

func TestUnknownRankFallsBackToLowestTier(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, int64(0), p.DiscountPercent("platinum"))

	p.RankDiscounts = map[types.Rank]int64{types.RANK_SILVER: 3, types.RANK_GOLD: 7}
	assert.Equal(t, int64(3), p.DiscountPercent(""))
}

func TestNegativePointsRequestIsIgnored(t *testing.T) {
	r := DefaultPolicy().ComputePayment(50000, types.RANK_BRONZE, -5)
	assert.Equal(t, int64(0), r.FinalPointsUsed)
	assert.Equal(t, int64(50000), r.FinalAmount)
}

func TestMaxRedeemableRoundsUp(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, int64(19), p.MaxRedeemable(18810))
	assert.Equal(t, int64(0), p.MaxRedeemable(0))
	p.ExchangeValue = 0
	assert.Equal(t, int64(0), p.MaxRedeemable(18810))
}

func TestComputePaymentProperties(t *testing.T) {
	p := DefaultPolicy()
	ranks := []types.Rank{types.RANK_BRONZE, types.RANK_SILVER, types.RANK_GOLD, types.RANK_DIAMOND, "unknown"}
	rnd := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		amount := rnd.Int63n(5_000_000)
		rank := ranks[rnd.Intn(len(ranks))]
		requested := rnd.Int63n(10_000) - 100

		r := p.ComputePayment(amount, rank, requested)
		again := p.ComputePayment(amount, rank, requested)

		assert.Equal(t, r, again)
		assert.GreaterOrEqual(t, r.FinalAmount, int64(0))
		assert.LessOrEqual(t, r.FinalPointsUsed, max(requested, 0))
		assert.LessOrEqual(t, r.FinalPointsUsed, p.MaxRedeemable(amount-r.Discount))
		assert.Equal(t, r.FinalAmount/p.EarnRate, r.PointsEarned)
	}
}

func TestRankForPoints(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, types.RANK_BRONZE, p.RankForPoints(0))
	assert.Equal(t, types.RANK_BRONZE, p.RankForPoints(999))
	assert.Equal(t, types.RANK_SILVER, p.RankForPoints(1000))
	assert.Equal(t, types.RANK_GOLD, p.RankForPoints(7500))
	assert.Equal(t, types.RANK_DIAMOND, p.RankForPoints(1_000_000))
}

func TestReservationCharges(t *testing.T) {
	base, vat := ReservationCharges(150000, 2, 20000, 10)
	assert.Equal(t, int64(320000), base)
	assert.Equal(t, int64(32000), vat)
	assert.Equal(t, int64(352000), ReservationAmount(150000, 2, 20000, 10))
	assert.Equal(t, int64(0), VAT(1000, 0))
}
