package processors

import (
	"github.com/shopspring/decimal"

	"github.com/AgasiArgent/kvota-sub003/src/models"
	"github.com/AgasiArgent/kvota-sub003/src/utils"
)

// FinancingInput carries everything the resolver needs; all amounts are in
// the canonical currency.
type FinancingInput struct {
	Events []models.TimelineEvent
	// Principal is the full committed purchase capital.
	Principal decimal.Decimal
	// Advance is the client advance received at the advance-paid event; it
	// reduces the stage-2 principal.
	Advance decimal.Decimal
	// DailyRatePct is the daily loan interest rate (0.05 means 0.05%/day).
	DailyRatePct decimal.Decimal
	// CommissionPct is the one-off financing commission on the principal.
	CommissionPct decimal.Decimal
}

type financingResolverImpl struct{}

func NewFinancingResolver() FinancingResolver {
	return &financingResolverImpl{}
}

// Resolve computes the two-stage compounding financing cost.
//
// Stage 1 runs from contract signing to the advance payment on the full
// principal; stage 2 runs from the advance payment to the final payment on
// the principal reduced by the client advance. An actual date on any event
// shifts every later event by the same delay, so the extra cost of a delay
// lands on the event that caused it, not on whichever event closes the span.
func (r *financingResolverImpl) Resolve(in FinancingInput) (models.FinancingBreakdown, error) {
	if len(in.Events) == 0 {
		return models.FinancingBreakdown{
			Stage1Interest: decimal.Zero, Stage2Interest: decimal.Zero,
			Commission: decimal.Zero, PlannedCost: decimal.Zero,
			ActualCost: decimal.Zero, TotalCost: decimal.Zero,
		}, nil
	}

	ordered, err := orderTimeline(in.Events)
	if err != nil {
		return models.FinancingBreakdown{}, err
	}

	plannedDates := make(map[models.TimelineEventType]int, len(ordered))
	working := make(map[models.TimelineEventType]int, len(ordered))
	epoch := ordered[0].Planned
	for _, ev := range ordered {
		d := utils.DaysBetween(epoch, ev.Planned)
		plannedDates[ev.Type] = d
		working[ev.Type] = d
	}
	if err := checkMonotonic(ordered, working); err != nil {
		return models.FinancingBreakdown{}, err
	}

	plannedCost, _, _, _, _, err := stageCost(working, in)
	if err != nil {
		return models.FinancingBreakdown{}, err
	}

	// Cascade actual dates in event order, attributing the cost delta of each
	// substitution to the event whose actual date moved.
	var delays []models.EventDelayCost
	prevCost := plannedCost
	for i, ev := range ordered {
		if ev.Actual == nil {
			continue
		}
		actualDay := utils.DaysBetween(epoch, *ev.Actual)
		shift := actualDay - working[ev.Type]
		if shift == 0 {
			continue
		}
		working[ev.Type] = actualDay
		for _, later := range ordered[i+1:] {
			working[later.Type] += shift
		}
		if err := checkMonotonic(ordered, working); err != nil {
			return models.FinancingBreakdown{}, err
		}
		cost, _, _, _, _, err := stageCost(working, in)
		if err != nil {
			return models.FinancingBreakdown{}, err
		}
		delays = append(delays, models.EventDelayCost{
			Event:     ev.Type,
			DelayDays: shift,
			ExtraCost: cost.Sub(prevCost),
		})
		prevCost = cost
	}

	actualCost, stage1, stage2, d1, d2, err := stageCost(working, in)
	if err != nil {
		return models.FinancingBreakdown{}, err
	}

	commission := in.Principal.Mul(utils.Pct(in.CommissionPct))

	return models.FinancingBreakdown{
		Stage1Days:         d1,
		Stage2Days:         d2,
		Stage1Interest:     stage1,
		Stage2Interest:     stage2,
		Commission:         commission,
		PlannedCost:        plannedCost,
		ActualCost:         actualCost,
		TotalCost:          actualCost,
		ExtraCostFromDelay: delays,
	}, nil
}

// stageCost computes total interest for a set of event days (offsets from the
// first event's planned date).
func stageCost(days map[models.TimelineEventType]int, in FinancingInput) (total, stage1, stage2 decimal.Decimal, d1, d2 int, err error) {
	signed, okSigned := days[models.EventContractSigned]
	advance, okAdvance := days[models.EventAdvancePaid]
	final, okFinal := days[models.EventFinalPayment]
	if !okSigned || !okAdvance || !okFinal {
		err = models.NewValidationError("", "timeline", "timeline must include contract_signed, advance_paid and final_payment events")
		return
	}

	d1 = advance - signed
	d2 = final - advance
	if d1 < 0 || d2 < 0 {
		err = &models.CalculationError{Kind: models.ErrInvalidTimelineOrder, Field: "timeline"}
		return
	}

	stage1 = in.Principal.Mul(utils.CompoundFactor(in.DailyRatePct, d1).Sub(decimal.NewFromInt(1)))
	principal2 := in.Principal.Sub(in.Advance)
	if principal2.IsNegative() {
		principal2 = decimal.Zero
	}
	stage2 = principal2.Mul(utils.CompoundFactor(in.DailyRatePct, d2).Sub(decimal.NewFromInt(1)))
	total = stage1.Add(stage2)
	return
}

// orderTimeline returns the events sorted in canonical milestone order,
// rejecting duplicates.
func orderTimeline(events []models.TimelineEvent) ([]models.TimelineEvent, error) {
	byType := make(map[models.TimelineEventType]models.TimelineEvent, len(events))
	for _, ev := range events {
		if _, dup := byType[ev.Type]; dup {
			return nil, models.NewValidationError("", "timeline", "duplicate timeline event "+string(ev.Type))
		}
		if ev.Planned.IsZero() {
			return nil, models.NewValidationError("", "timeline", "timeline event "+string(ev.Type)+" has no planned date")
		}
		byType[ev.Type] = ev
	}

	ordered := make([]models.TimelineEvent, 0, len(byType))
	for _, t := range models.TimelineOrder {
		if ev, ok := byType[t]; ok {
			ordered = append(ordered, ev)
		}
	}
	if len(ordered) != len(byType) {
		return nil, models.NewValidationError("", "timeline", "timeline contains an unknown event type")
	}
	return ordered, nil
}

// checkMonotonic fails with InvalidTimelineOrder if a later event lands
// before an earlier one (time travel).
func checkMonotonic(ordered []models.TimelineEvent, days map[models.TimelineEventType]int) error {
	prev := 0
	for i, ev := range ordered {
		d := days[ev.Type]
		if i > 0 && d < prev {
			return &models.CalculationError{
				Kind:   models.ErrInvalidTimelineOrder,
				Field:  "timeline",
				Detail: string(ev.Type) + " precedes the event before it",
			}
		}
		prev = d
	}
	return nil
}
