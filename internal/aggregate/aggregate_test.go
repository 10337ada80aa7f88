package aggregate

import (
	"math"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/upi-statement-analyzer/internal/categorize"
	"github.com/insightdelivered/upi-statement-analyzer/internal/models"
)

func txn(amount string, category string, date time.Time) models.Transaction {
	return models.Transaction{
		Date:     date,
		Amount:   decimal.RequireFromString(amount),
		Category: category,
	}
}

func randomTransactions(f *gofakeit.Faker, n int) []models.Transaction {
	cats := categorize.Categories()
	out := make([]models.Transaction, n)
	for i := range out {
		amt := decimal.NewFromFloat(f.Float64Range(-50000, 50000)).Round(2)
		if f.IntRange(0, 9) == 0 {
			amt = decimal.Zero
		}
		out[i] = models.Transaction{
			Date:        f.DateRange(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)),
			Description: f.Sentence(4),
			Amount:      amt,
			Category:    f.RandomString(cats),
		}
	}
	return out
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)

	assert.True(t, s.TotalSpent.IsZero())
	assert.True(t, s.TotalReceived.IsZero())
	assert.True(t, s.NetFlow.IsZero())
	assert.Zero(t, s.TotalTransactions)
	assert.Zero(t, s.CreditCount)
	assert.Zero(t, s.DebitCount)
	assert.Nil(t, s.HighestTransaction)
	assert.Nil(t, s.LowestTransaction)
	assert.Nil(t, s.Period)
	assert.Nil(t, s.ClosingBalance)
	require.NotNil(t, s.CategoryBreakdown)
	assert.Empty(t, s.CategoryBreakdown)
}

func TestSummarize(t *testing.T) {
	jan := func(d int) time.Time { return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC) }
	bal := decimal.RequireFromString("47500")

	txns := []models.Transaction{
		txn("-1250.00", categorize.Shopping, jan(15)),
		txn("500", categorize.Transfer, jan(20)),
		txn("-450", categorize.FoodDining, jan(3)),
		txn("1250", categorize.Income, jan(25)),
		txn("0", categorize.Others, jan(26)),
		txn("-450", categorize.FoodDining, jan(10)),
	}
	txns[2].Balance = &bal
	fallback := txn("-10", categorize.Others, time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC))
	fallback.DateFallback = true
	txns = append(txns, fallback)

	s := Summarize(txns)

	assert.Equal(t, "-2160", s.TotalSpent.String())
	assert.Equal(t, "1750", s.TotalReceived.String())
	assert.Equal(t, "-410", s.NetFlow.String())
	assert.Equal(t, 4, s.DebitCount)
	assert.Equal(t, 2, s.CreditCount)
	assert.Equal(t, 7, s.TotalTransactions)

	require.NotNil(t, s.HighestTransaction)
	assert.Equal(t, "1250", s.HighestAmount.String())
	assert.True(t, s.HighestTransaction.Amount.IsNegative(), "first of equal magnitudes wins")

	require.NotNil(t, s.LowestTransaction)
	assert.Equal(t, "10", s.LowestAmount.String())

	require.NotNil(t, s.ClosingBalance)
	assert.True(t, s.ClosingBalance.Equal(bal))

	require.NotNil(t, s.Period)
	assert.True(t, s.Period.From.Equal(jan(3)))
	assert.True(t, s.Period.To.Equal(jan(26)))

	food := s.CategoryBreakdown[categorize.FoodDining]
	assert.Equal(t, "900", food.Amount.String())
	assert.Equal(t, 2, food.Count)
}

func TestSummarize_LowestSkipsZero(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := Summarize([]models.Transaction{
		txn("0", categorize.Others, day),
		txn("-75", categorize.FoodDining, day),
		txn("75", categorize.Income, day),
	})

	require.NotNil(t, s.LowestTransaction)
	assert.Equal(t, "-75", s.LowestTransaction.Amount.String())
}

func TestSummarize_AllZero(t *testing.T) {
	s := Summarize([]models.Transaction{txn("0", categorize.Others, time.Now())})

	assert.Nil(t, s.HighestTransaction)
	assert.Nil(t, s.LowestTransaction)
	others := s.CategoryBreakdown[categorize.Others]
	assert.Equal(t, 1, others.Count)
	assert.Zero(t, others.Percentage)
}

func TestBreakdown_Conservation(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		f := gofakeit.New(seed)
		txns := randomTransactions(f, f.IntRange(1, 200))

		b := Breakdown(txns)

		sumAbs := decimal.Zero
		for _, tx := range txns {
			sumAbs = sumAbs.Add(tx.Amount.Abs())
		}
		sumBreakdown := decimal.Zero
		count := 0
		pct := 0.0
		for _, ct := range b {
			sumBreakdown = sumBreakdown.Add(ct.Amount)
			count += ct.Count
			pct += ct.Percentage
		}

		assert.True(t, sumAbs.Equal(sumBreakdown), "seed %d: %s != %s", seed, sumAbs, sumBreakdown)
		assert.Equal(t, len(txns), count, "seed %d", seed)
		if sumAbs.IsPositive() {
			assert.InDelta(t, 100.0, pct, 1e-6, "seed %d", seed)
		}
	}
}

func TestSummarize_SignProperty(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		f := gofakeit.New(seed)
		txns := randomTransactions(f, f.IntRange(0, 150))

		s := Summarize(txns)

		spent, received := decimal.Zero, decimal.Zero
		zeros := 0
		for _, tx := range txns {
			switch {
			case tx.Amount.IsNegative():
				spent = spent.Add(tx.Amount)
			case tx.Amount.IsPositive():
				received = received.Add(tx.Amount)
			default:
				zeros++
			}
		}

		assert.True(t, s.TotalSpent.Equal(spent), "seed %d", seed)
		assert.True(t, s.TotalReceived.Equal(received), "seed %d", seed)
		assert.False(t, s.TotalSpent.IsPositive())
		assert.False(t, s.TotalReceived.IsNegative())
		assert.Equal(t, len(txns), s.CreditCount+s.DebitCount+zeros, "seed %d", seed)
		assert.True(t, s.NetFlow.Equal(received.Add(spent)), "seed %d", seed)
	}
}

func TestSorted(t *testing.T) {
	b := map[string]models.CategoryTotal{
		categorize.Transfer:   {Amount: decimal.NewFromInt(500), Count: 1},
		categorize.Shopping:   {Amount: decimal.NewFromInt(1250), Count: 1},
		categorize.FoodDining: {Amount: decimal.NewFromInt(500), Count: 2},
		categorize.Others:     {Amount: decimal.Zero, Count: 1},
	}

	got := Sorted(b)
	want := []string{categorize.Shopping, categorize.FoodDining, categorize.Transfer, categorize.Others}
	require.Len(t, got, len(want))
	for i, w := range want {
		assert.Equal(t, w, got[i].Category)
	}
	assert.False(t, math.IsNaN(got[0].Percentage))
}
