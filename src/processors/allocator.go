package processors

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/AgasiArgent/kvota-sub003/src/models"
)

// sharedCostAllocatorImpl apportions a lump sum by largest-remainder: each
// share is truncated to the configured precision and the leftover is handed
// out step by step to the shares with the largest truncation remainder, so
// the shares always reconcile exactly to the input total.
type sharedCostAllocatorImpl struct {
	precision int32
}

func NewSharedCostAllocator(precision int32) Allocator {
	return &sharedCostAllocatorImpl{precision: precision}
}

func (a *sharedCostAllocatorImpl) Allocate(total decimal.Decimal, bases []decimal.Decimal) ([]decimal.Decimal, error) {
	n := len(bases)
	shares := make([]decimal.Decimal, n)
	for i := range shares {
		shares[i] = decimal.Zero
	}
	if total.IsZero() {
		return shares, nil
	}
	if n == 0 {
		return nil, &models.CalculationError{
			Kind:   models.ErrAllocationImbalance,
			Detail: "non-zero total with no products to allocate to",
		}
	}

	// Negative lump sums (credits) allocate on the magnitude, then flip sign.
	negative := total.IsNegative()
	t := total.Abs()

	baseSum := decimal.Zero
	for _, b := range bases {
		if b.IsNegative() {
			return nil, models.NewValidationError("", "allocation_basis", "negative allocation basis")
		}
		baseSum = baseSum.Add(b)
	}
	// All-zero bases degrade to an equal split.
	effective := bases
	if baseSum.IsZero() {
		effective = make([]decimal.Decimal, n)
		for i := range effective {
			effective[i] = decimal.NewFromInt(1)
		}
		baseSum = decimal.NewFromInt(int64(n))
	}

	step := decimal.New(1, -a.precision)
	type remainder struct {
		idx  int
		frac decimal.Decimal
	}
	remainders := make([]remainder, n)
	floorSum := decimal.Zero
	for i, b := range effective {
		raw := t.Mul(b).Div(baseSum)
		floor := raw.RoundDown(a.precision)
		shares[i] = floor
		floorSum = floorSum.Add(floor)
		remainders[i] = remainder{idx: i, frac: raw.Sub(floor)}
	}

	// Stable sort keeps the lower product index first on equal remainders.
	sort.SliceStable(remainders, func(i, j int) bool {
		return remainders[i].frac.GreaterThan(remainders[j].frac)
	})

	residual := t.Sub(floorSum)
	units := residual.Div(step).Floor()
	for i := int64(0); i < units.IntPart(); i++ {
		idx := remainders[int(i)%n].idx
		shares[idx] = shares[idx].Add(step)
	}
	// When the total itself carries more precision than the rounding step the
	// last crumb is smaller than one step; it goes to the largest remainder.
	crumb := residual.Sub(step.Mul(units))
	if !crumb.IsZero() {
		shares[remainders[0].idx] = shares[remainders[0].idx].Add(crumb)
	}

	checkSum := decimal.Zero
	for i := range shares {
		if negative {
			shares[i] = shares[i].Neg()
		}
		checkSum = checkSum.Add(shares[i])
	}
	if !checkSum.Equal(total) {
		return nil, &models.CalculationError{
			Kind:   models.ErrAllocationImbalance,
			Detail: "allocated shares sum to " + checkSum.String() + ", expected " + total.String(),
		}
	}
	return shares, nil
}

// AllocateMixed honors individually entered amounts and distributes the
// remainder of the lump sum over the products without one.
func (a *sharedCostAllocatorImpl) AllocateMixed(total decimal.Decimal, individual []*decimal.Decimal, bases []decimal.Decimal) ([]decimal.Decimal, error) {
	if len(individual) != len(bases) {
		return nil, models.NewValidationError("", "individual_costs", "individual costs and bases length mismatch")
	}

	remainder := total
	restIdx := make([]int, 0, len(bases))
	for i, ind := range individual {
		if ind != nil {
			remainder = remainder.Sub(*ind)
		} else {
			restIdx = append(restIdx, i)
		}
	}
	if remainder.IsNegative() {
		return nil, models.NewValidationError("", "individual_costs", "individually entered costs exceed the quote-level total")
	}

	shares := make([]decimal.Decimal, len(bases))
	for i, ind := range individual {
		if ind != nil {
			shares[i] = *ind
		} else {
			shares[i] = decimal.Zero
		}
	}
	if len(restIdx) == 0 {
		if !remainder.IsZero() {
			return nil, &models.CalculationError{
				Kind:   models.ErrAllocationImbalance,
				Detail: "all products carry individual costs but " + remainder.String() + " of the total is unassigned",
			}
		}
		return shares, nil
	}

	restBases := make([]decimal.Decimal, len(restIdx))
	for j, i := range restIdx {
		restBases[j] = bases[i]
	}
	restShares, err := a.Allocate(remainder, restBases)
	if err != nil {
		return nil, err
	}
	for j, i := range restIdx {
		shares[i] = restShares[j]
	}
	return shares, nil
}
