package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AgasiArgent/kvota-sub003/src/logger"
	"github.com/AgasiArgent/kvota-sub003/src/models"
	"github.com/AgasiArgent/kvota-sub003/src/processors"
	"github.com/AgasiArgent/kvota-sub003/src/rates"
	"github.com/AgasiArgent/kvota-sub003/src/utils"
)

type calculationServiceImpl struct {
	provider  rates.Provider
	canonical models.Currency
	precision int32
}

// NewCalculationService wires the engine against a rate provider. The service
// is stateless; each Calculate call builds its own run cache, so identical
// inputs against an identical rate snapshot produce identical results.
func NewCalculationService(provider rates.Provider, canonical models.Currency, precision int32) CalculationService {
	return &calculationServiceImpl{provider: provider, canonical: canonical, precision: precision}
}

// perProduct is the fan-out working state for one product slot.
type perProduct struct {
	calc *processors.ProductCalc
	err  error
}

func (s *calculationServiceImpl) Calculate(req CalculationRequest) (*CalculationOutcome, error) {
	start := time.Now()
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	// All rate lookups for the run go through one cache: each distinct
	// (currency, date, org) tuple hits the provider once and the resolved set
	// is frozen for the duration of the run.
	runCache := rates.NewRunCache(s.provider)
	normalizer := processors.NewMonetaryNormalizer(runCache, s.canonical)
	pipeline := processors.NewQuotePipeline(s.precision)
	allocator := processors.NewSharedCostAllocator(s.precision)
	resolver := processors.NewFinancingResolver()
	aggregator := processors.NewQuoteAggregator()

	quote := &req.Quote
	n := len(req.Products)
	slots := make([]perProduct, n)

	// Fan-out: the purchase-price phase and all per-product normalization
	// have no cross-product dependency.
	var wg sync.WaitGroup
	for i := range req.Products {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			slots[i].calc, slots[i].err = s.beginProduct(pipeline, normalizer, &req, req.Products[i])
		}(i)
	}
	wg.Wait()
	for i := range slots {
		if slots[i].err != nil {
			return nil, slots[i].err
		}
	}

	// Barrier: shared-cost allocation needs every product's basis values.
	valueBasis := make([]decimal.Decimal, n)
	weightBasis := make([]decimal.Decimal, n)
	committedCapital := decimal.Zero
	for i := range slots {
		valueBasis[i] = slots[i].calc.PurchaseBasis()
		weightBasis[i] = req.Products[i].WeightKg
		committedCapital = committedCapital.Add(valueBasis[i])
	}
	basisFor := func(b models.AllocationBasis) []decimal.Decimal {
		if b == models.AllocationByWeight {
			return weightBasis
		}
		return valueBasis
	}

	costShares, err := s.allocateSharedCosts(allocator, normalizer, &req, basisFor)
	if err != nil {
		return nil, err
	}

	for i := range slots {
		pipeline.BuildCosts(slots[i].calc, costShares[i], quote)
	}

	// Financing runs on the full committed purchase capital; the client
	// advance releases its share of that capital for stage 2.
	financing, err := resolver.Resolve(processors.FinancingInput{
		Events:        quote.Timeline,
		Principal:     committedCapital,
		Advance:       committedCapital.Mul(utils.Pct(quote.AdvancePct)),
		DailyRatePct:  quote.Rates.DailyLoanInterestPct,
		CommissionPct: quote.Rates.FinancingCommissionPct,
	})
	if err != nil {
		return nil, err
	}

	finalShares, err := s.allocateFinalShares(allocator, normalizer, &req, financing, basisFor)
	if err != nil {
		return nil, err
	}

	quoteRate, err := runCache.GetRate(s.canonical, quote.QuoteCurrency, req.AsOf, quote.OrgID)
	if err != nil {
		return nil, err
	}

	// Fan-out: the remaining phases are again independent per product.
	results := make([]models.CalculationResult, n)
	for i := range slots {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = pipeline.Finalize(slots[i].calc, finalShares[i], quote, quoteRate.Value)
		}(i)
	}
	wg.Wait()

	summary := aggregator.Summarize(results, quote)

	outcome := &CalculationOutcome{
		RunID:     uuid.NewString(),
		Results:   results,
		Summary:   summary,
		Financing: financing,
		Snapshot:  runCache.Snapshot(),
	}
	logger.L.Info("Calculation run complete",
		"quoteID", quote.QuoteID,
		"runID", outcome.RunID,
		"products", n,
		"ratesResolved", len(outcome.Snapshot.Entries),
		"duration", time.Since(start))
	return outcome, nil
}

func (s *calculationServiceImpl) beginProduct(pipeline *processors.QuotePipeline, normalizer processors.Normalizer, req *CalculationRequest, product models.ProductInput) (*processors.ProductCalc, error) {
	basePrice, err := normalizer.Normalize(product.BasePrice, product.BaseCurrency, req.AsOf, req.Quote.OrgID)
	if err != nil {
		return nil, annotate(err, product.ID, "base_price")
	}

	var exciseBase *models.MonetaryAmount
	if product.ExciseBase != nil {
		cur := product.ExciseBaseCurrency
		if cur == "" {
			cur = s.canonical
		}
		normalized, err := normalizer.Normalize(*product.ExciseBase, cur, req.AsOf, req.Quote.OrgID)
		if err != nil {
			return nil, annotate(err, product.ID, "excise_base")
		}
		exciseBase = &normalized
	}

	var individualLogistics *models.MonetaryAmount
	if product.IndividualLogistics != nil {
		cur := product.IndividualLogisticsCurrency
		if cur == "" {
			cur = s.canonical
		}
		normalized, err := normalizer.Normalize(*product.IndividualLogistics, cur, req.AsOf, req.Quote.OrgID)
		if err != nil {
			return nil, annotate(err, product.ID, "individual_logistics")
		}
		individualLogistics = &normalized
	}

	return pipeline.BeginProduct(product, basePrice, exciseBase, individualLogistics), nil
}

// allocateSharedCosts normalizes each quote-level cost leg and splits it
// across products. Logistics legs are combined into one lump and allocated
// with mixed-mode support; the other categories allocate per leg by the
// leg's own basis.
func (s *calculationServiceImpl) allocateSharedCosts(allocator processors.Allocator, normalizer processors.Normalizer, req *CalculationRequest, basisFor func(models.AllocationBasis) []decimal.Decimal) ([]processors.CostShares, error) {
	n := len(req.Products)
	shares := make([]processors.CostShares, n)
	for i := range shares {
		shares[i] = processors.CostShares{
			Logistics:     decimal.Zero,
			Brokerage:     decimal.Zero,
			Warehousing:   decimal.Zero,
			Documentation: decimal.Zero,
		}
	}

	sumLegs := func(legs []models.CostLeg, field string) (decimal.Decimal, error) {
		total := decimal.Zero
		for _, leg := range legs {
			normalized, err := normalizer.Normalize(leg.Amount, leg.Currency, req.AsOf, req.Quote.OrgID)
			if err != nil {
				return decimal.Zero, annotate(err, "", field+"."+leg.Name)
			}
			total = total.Add(normalized.ValueCanonical)
		}
		return total, nil
	}

	// Logistics: one lump across all legs; products with individually entered
	// logistics keep their amount and the remainder goes to the rest.
	logisticsTotal, err := sumLegs(req.Quote.LogisticsLegs, "logistics_legs")
	if err != nil {
		return nil, err
	}
	individual := make([]*decimal.Decimal, n)
	for i := range req.Products {
		if req.Products[i].IndividualLogistics != nil {
			normalized, err := normalizer.Normalize(*req.Products[i].IndividualLogistics, individualCurrency(&req.Products[i], s.canonical), req.AsOf, req.Quote.OrgID)
			if err != nil {
				return nil, annotate(err, req.Products[i].ID, "individual_logistics")
			}
			v := normalized.ValueCanonical
			individual[i] = &v
		}
	}
	// A quote with only individually entered logistics has no lump to split.
	if logisticsTotal.IsPositive() {
		logisticsShares, err := allocator.AllocateMixed(logisticsTotal, individual, basisFor(req.Quote.AllocationBasis))
		if err != nil {
			return nil, err
		}
		for i := range shares {
			// The individually entered amount is already carried by the
			// pipeline as LogisticsIndividual; the allocated share excludes it.
			if individual[i] == nil {
				shares[i].Logistics = logisticsShares[i]
			}
		}
	}

	perLeg := func(legs []models.CostLeg, field string, assign func(i int, v decimal.Decimal)) error {
		for _, leg := range legs {
			normalized, err := normalizer.Normalize(leg.Amount, leg.Currency, req.AsOf, req.Quote.OrgID)
			if err != nil {
				return annotate(err, "", field+"."+leg.Name)
			}
			legShares, err := allocator.Allocate(normalized.ValueCanonical, basisFor(leg.Basis))
			if err != nil {
				return err
			}
			for i, v := range legShares {
				assign(i, v)
			}
		}
		return nil
	}

	if err := perLeg(req.Quote.BrokerageLegs, "brokerage_legs", func(i int, v decimal.Decimal) {
		shares[i].Brokerage = shares[i].Brokerage.Add(v)
	}); err != nil {
		return nil, err
	}
	if err := perLeg(req.Quote.WarehousingLegs, "warehousing_legs", func(i int, v decimal.Decimal) {
		shares[i].Warehousing = shares[i].Warehousing.Add(v)
	}); err != nil {
		return nil, err
	}
	if err := perLeg(req.Quote.DocumentationLegs, "documentation_legs", func(i int, v decimal.Decimal) {
		shares[i].Documentation = shares[i].Documentation.Add(v)
	}); err != nil {
		return nil, err
	}

	return shares, nil
}

func (s *calculationServiceImpl) allocateFinalShares(allocator processors.Allocator, normalizer processors.Normalizer, req *CalculationRequest, financing models.FinancingBreakdown, basisFor func(models.AllocationBasis) []decimal.Decimal) ([]processors.FinalShares, error) {
	n := len(req.Products)
	basis := basisFor(req.Quote.AllocationBasis)

	financingShares, err := allocator.Allocate(financing.TotalCost, basis)
	if err != nil {
		return nil, err
	}
	commissionShares, err := allocator.Allocate(financing.Commission, basis)
	if err != nil {
		return nil, err
	}

	agentShares := make([]decimal.Decimal, n)
	if req.Quote.Agent.Enabled && req.Quote.Agent.FixedFee {
		fee, err := normalizer.Normalize(req.Quote.Agent.FeeAmount, req.Quote.Agent.FeeCurrency, req.AsOf, req.Quote.OrgID)
		if err != nil {
			return nil, annotate(err, "", "agent.fee_amount")
		}
		agentShares, err = allocator.Allocate(fee.ValueCanonical, basis)
		if err != nil {
			return nil, err
		}
	}

	out := make([]processors.FinalShares, n)
	for i := 0; i < n; i++ {
		out[i] = processors.FinalShares{
			Financing:           financingShares[i],
			FinancingCommission: commissionShares[i],
			AgentFixedFee:       agentShares[i],
		}
	}
	return out, nil
}

func (s *calculationServiceImpl) validate(req *CalculationRequest) error {
	q := &req.Quote
	if req.AsOf.IsZero() {
		return models.NewValidationError("", "as_of", "valuation date is required")
	}
	if len(req.Products) == 0 {
		return models.NewValidationError("", "products", "a quote needs at least one product")
	}
	if !q.QuoteCurrency.Valid() {
		return models.NewValidationError("", "quote_currency", "unsupported currency code "+string(q.QuoteCurrency))
	}
	if !q.SellerRegion.Valid() {
		return models.NewValidationError("", "seller_region", "unknown seller region "+string(q.SellerRegion))
	}
	if q.DeliveryDate.IsZero() {
		return models.NewValidationError("", "delivery_date", "delivery date is required")
	}
	hundred := decimal.NewFromInt(100)
	if q.AdvancePct.IsNegative() || q.AdvancePct.GreaterThan(hundred) {
		return models.NewValidationError("", "advance_pct", "advance percentage must be between 0 and 100")
	}
	if q.MarkupPct.IsNegative() {
		return models.NewValidationError("", "markup_pct", "markup percentage must not be negative")
	}
	for _, legs := range [][]models.CostLeg{q.LogisticsLegs, q.BrokerageLegs, q.WarehousingLegs, q.DocumentationLegs} {
		for _, leg := range legs {
			if !leg.Currency.Valid() {
				return models.NewValidationError("", "cost_leg."+leg.Name, "unsupported currency code "+string(leg.Currency))
			}
			if leg.Amount.IsNegative() {
				return models.NewValidationError("", "cost_leg."+leg.Name, "cost leg amount must not be negative")
			}
		}
	}
	if q.Agent.Enabled && q.Agent.FixedFee && !q.Agent.FeeCurrency.Valid() {
		return models.NewValidationError("", "agent.fee_currency", "unsupported currency code "+string(q.Agent.FeeCurrency))
	}

	seen := make(map[string]bool, len(req.Products))
	for i := range req.Products {
		p := &req.Products[i]
		if p.ID == "" {
			return models.NewValidationError("", "products", "product without an ID at position "+decimal.NewFromInt(int64(i)).String())
		}
		if seen[p.ID] {
			return models.NewValidationError(p.ID, "id", "duplicate product ID")
		}
		seen[p.ID] = true
		if !p.BaseCurrency.Valid() {
			return models.NewValidationError(p.ID, "base_currency", "unsupported currency code "+string(p.BaseCurrency))
		}
		if !p.Quantity.IsPositive() {
			return models.NewValidationError(p.ID, "quantity", "quantity must be positive")
		}
		if p.WeightKg.IsNegative() {
			return models.NewValidationError(p.ID, "weight_kg", "weight must not be negative")
		}
		if p.BasePrice.IsNegative() {
			return models.NewValidationError(p.ID, "base_price", "base price must not be negative")
		}
		if p.SupplierDiscountPct.IsNegative() || p.SupplierDiscountPct.GreaterThan(hundred) {
			return models.NewValidationError(p.ID, "supplier_discount_pct", "discount must be between 0 and 100")
		}
		if p.ImportTariffPct.IsNegative() {
			return models.NewValidationError(p.ID, "import_tariff_pct", "tariff rate must not be negative")
		}
		if p.ExcisePct.IsNegative() {
			return models.NewValidationError(p.ID, "excise_pct", "excise rate must not be negative")
		}
		if p.MarkupPct != nil && p.MarkupPct.IsNegative() {
			return models.NewValidationError(p.ID, "markup_pct", "markup override must not be negative")
		}
	}
	return nil
}

func individualCurrency(p *models.ProductInput, canonical models.Currency) models.Currency {
	if p.IndividualLogisticsCurrency != "" {
		return p.IndividualLogisticsCurrency
	}
	return canonical
}

// annotate fills in the product/field identifiers on a CalculationError so
// the caller can report exactly which input blocked the run.
func annotate(err error, productID, field string) error {
	ce, ok := err.(*models.CalculationError)
	if !ok {
		return err
	}
	annotated := *ce
	if annotated.ProductID == "" {
		annotated.ProductID = productID
	}
	if annotated.Field == "" {
		annotated.Field = field
	}
	return &annotated
}
