package processors

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/AgasiArgent/kvota-sub003/src/models"
	"github.com/AgasiArgent/kvota-sub003/src/utils"
)

// QuotePipeline runs the ordered per-product calculation phases. Phases are
// pure: each consumes normalized inputs and the outputs of earlier phases
// only. Quote-level shared costs arrive as pre-allocated canonical shares,
// so the pipeline itself never looks across products.
//
// No rounding happens inside the phases; every working value keeps full
// decimal precision until Finalize rounds at the output boundary.
type QuotePipeline struct {
	precision int32
}

func NewQuotePipeline(precision int32) *QuotePipeline {
	return &QuotePipeline{precision: precision}
}

// ProductCalc is the unrounded working state for one product as it moves
// through the phases.
type ProductCalc struct {
	Product   models.ProductInput
	BasePrice models.MonetaryAmount

	purchasePrice  decimal.Decimal
	discountAmount decimal.Decimal

	logisticsIndividual decimal.Decimal
	logisticsAllocated  decimal.Decimal
	logisticsCost       decimal.Decimal

	customsValue decimal.Decimal
	customsDuty  decimal.Decimal
	exciseTax    decimal.Decimal

	brokerageCost     decimal.Decimal
	insuranceCost     decimal.Decimal
	warehousingCost   decimal.Decimal
	documentationCost decimal.Decimal

	financingCost       decimal.Decimal
	financingCommission decimal.Decimal

	cogs decimal.Decimal

	markupPct        decimal.Decimal
	markupAmount     decimal.Decimal
	forexRiskReserve decimal.Decimal
	agentFee         decimal.Decimal

	salesPriceExVAT  decimal.Decimal
	salesPriceIncVAT decimal.Decimal

	vatRatePct decimal.Decimal
	vatOnSale  decimal.Decimal
	inputVAT   decimal.Decimal
	vatPayable decimal.Decimal

	salesPriceQuote decimal.Decimal
	clientAdvance   decimal.Decimal

	profit    decimal.Decimal
	marginPct decimal.Decimal
}

// PurchaseBasis returns the product's purchase price, the default value
// basis for shared-cost allocation.
func (pc *ProductCalc) PurchaseBasis() decimal.Decimal { return pc.purchasePrice }

// BeginProduct runs the purchase-price phase:
// base price (canonical) x quantity x (1 - supplier discount).
// exciseBase and individualLogistics are nil when the product declares none.
func (p *QuotePipeline) BeginProduct(product models.ProductInput, basePrice models.MonetaryAmount, exciseBase, individualLogistics *models.MonetaryAmount) *ProductCalc {
	pc := &ProductCalc{Product: product, BasePrice: basePrice}

	gross := basePrice.ValueCanonical.Mul(product.Quantity)
	pc.discountAmount = gross.Mul(utils.Pct(product.SupplierDiscountPct))
	pc.purchasePrice = gross.Sub(pc.discountAmount)

	if individualLogistics != nil {
		pc.logisticsIndividual = individualLogistics.ValueCanonical
	}
	if exciseBase != nil {
		// Excise is levied on the separately declared basis, never compounded
		// with the customs duty.
		pc.exciseTax = exciseBase.ValueCanonical.Mul(utils.Pct(product.ExcisePct))
	}
	return pc
}

// CostShares carries this product's allocated portion of each quote-level
// shared cost, all in the canonical currency.
type CostShares struct {
	Logistics     decimal.Decimal
	Brokerage     decimal.Decimal
	Warehousing   decimal.Decimal
	Documentation decimal.Decimal
}

// BuildCosts runs the logistics, customs, duty/excise and cost-buildup phases
// up to the COGS assembly (financing is folded in later).
func (p *QuotePipeline) BuildCosts(pc *ProductCalc, shares CostShares, quote *models.QuoteInput) {
	pc.logisticsAllocated = shares.Logistics
	pc.logisticsCost = pc.logisticsIndividual.Add(pc.logisticsAllocated)

	// Customs valuation basis: purchase price plus the logistics attributable
	// to this product under the customs regime.
	pc.customsValue = pc.purchasePrice.Add(pc.logisticsCost)
	pc.customsDuty = pc.customsValue.Mul(utils.Pct(pc.Product.ImportTariffPct))

	pc.brokerageCost = shares.Brokerage
	pc.warehousingCost = shares.Warehousing
	pc.documentationCost = shares.Documentation

	pc.markupPct = quote.MarkupPct
	if pc.Product.MarkupPct != nil {
		pc.markupPct = *pc.Product.MarkupPct
	}

	// Insurance is proportional to the internal sale price estimate: the
	// customs value grossed up by the product markup.
	saleEstimate := pc.customsValue.Mul(decimal.NewFromInt(1).Add(utils.Pct(pc.markupPct)))
	pc.insuranceCost = saleEstimate.Mul(utils.Pct(quote.Rates.InsurancePct))

	pc.cogs = pc.purchasePrice.
		Add(pc.logisticsCost).
		Add(pc.customsDuty).
		Add(pc.exciseTax).
		Add(pc.brokerageCost).
		Add(pc.insuranceCost).
		Add(pc.warehousingCost).
		Add(pc.documentationCost)
}

// VATRatePct selects the VAT rate by seller region and delivery date. The
// delivery date decides the rate, not the quote creation date: RU deliveries
// from 2026 onward carry 22%, earlier ones 20%; AE and KZ sellers are always 0%.
func VATRatePct(region models.SellerRegion, deliveryDate time.Time) decimal.Decimal {
	if !region.Domestic() {
		return decimal.Zero
	}
	if deliveryDate.Year() >= 2026 {
		return decimal.NewFromInt(22)
	}
	return decimal.NewFromInt(20)
}

// FinalShares carries the product's allocated financing cost and, in
// fixed-fee mode, its share of the agent fee.
type FinalShares struct {
	Financing           decimal.Decimal
	FinancingCommission decimal.Decimal
	AgentFixedFee       decimal.Decimal
}

// Finalize runs the financing fold, sales price, VAT and profit phases, then
// rounds every output to the configured precision. quoteRate converts the
// canonical currency into the client-facing quote currency.
func (p *QuotePipeline) Finalize(pc *ProductCalc, shares FinalShares, quote *models.QuoteInput, quoteRate decimal.Decimal) models.CalculationResult {
	pc.financingCost = shares.Financing
	pc.financingCommission = shares.FinancingCommission
	pc.cogs = pc.cogs.Add(pc.financingCost).Add(pc.financingCommission)

	pc.markupAmount = pc.cogs.Mul(utils.Pct(pc.markupPct))
	markedUp := pc.cogs.Add(pc.markupAmount)
	pc.forexRiskReserve = markedUp.Mul(utils.Pct(quote.Rates.ForexRiskPct))

	if quote.Agent.Enabled {
		if quote.Agent.FixedFee {
			pc.agentFee = shares.AgentFixedFee
		} else {
			pc.agentFee = markedUp.Mul(utils.Pct(quote.Agent.FeePercent))
		}
	}

	pc.salesPriceExVAT = markedUp.Add(pc.forexRiskReserve).Add(pc.agentFee)

	pc.vatRatePct = VATRatePct(quote.SellerRegion, quote.DeliveryDate)
	pc.vatOnSale = pc.salesPriceExVAT.Mul(utils.Pct(pc.vatRatePct))
	pc.salesPriceIncVAT = pc.salesPriceExVAT.Add(pc.vatOnSale)

	if pc.vatRatePct.IsPositive() {
		// Deductible input VAT: for imports, the VAT paid at customs on the
		// valuation basis plus duty and excise; otherwise on the purchase.
		inputBase := pc.purchasePrice
		if quote.SaleType == models.SaleTypeImport {
			inputBase = pc.customsValue.Add(pc.customsDuty).Add(pc.exciseTax)
		}
		pc.inputVAT = inputBase.Mul(utils.Pct(pc.vatRatePct))
	}
	pc.vatPayable = pc.vatOnSale.Sub(pc.inputVAT)

	pc.salesPriceQuote = pc.salesPriceIncVAT.Mul(quoteRate)
	pc.clientAdvance = pc.salesPriceIncVAT.Mul(utils.Pct(quote.AdvancePct))

	pc.profit = pc.salesPriceExVAT.Sub(pc.cogs)
	pc.marginPct = utils.SafeDiv(pc.profit, pc.salesPriceExVAT).Mul(decimal.NewFromInt(100))

	return p.round(pc)
}

// round produces the immutable result, rounding monetary fields to the money
// precision and percentage fields to four decimal places.
func (p *QuotePipeline) round(pc *ProductCalc) models.CalculationResult {
	m := func(d decimal.Decimal) decimal.Decimal { return utils.RoundMoney(d, p.precision) }
	pct := func(d decimal.Decimal) decimal.Decimal { return d.Round(4) }

	return models.CalculationResult{
		ProductID:   pc.Product.ID,
		ProductName: pc.Product.Name,

		Quantity: pc.Product.Quantity,
		WeightKg: pc.Product.WeightKg,

		PurchasePrice:          m(pc.purchasePrice),
		SupplierDiscountAmount: m(pc.discountAmount),

		LogisticsIndividual: m(pc.logisticsIndividual),
		LogisticsAllocated:  m(pc.logisticsAllocated),
		LogisticsCost:       m(pc.logisticsCost),

		CustomsValue: m(pc.customsValue),
		CustomsDuty:  m(pc.customsDuty),
		ExciseTax:    m(pc.exciseTax),

		BrokerageCost:     m(pc.brokerageCost),
		InsuranceCost:     m(pc.insuranceCost),
		WarehousingCost:   m(pc.warehousingCost),
		DocumentationCost: m(pc.documentationCost),

		FinancingCost:       m(pc.financingCost),
		FinancingCommission: m(pc.financingCommission),

		COGS: m(pc.cogs),

		MarkupAmount:     m(pc.markupAmount),
		ForexRiskReserve: m(pc.forexRiskReserve),
		AgentFee:         m(pc.agentFee),

		SalesPriceExVAT:  m(pc.salesPriceExVAT),
		SalesPriceIncVAT: m(pc.salesPriceIncVAT),

		VATRatePct: pct(pc.vatRatePct),
		VATOnSale:  m(pc.vatOnSale),
		InputVAT:   m(pc.inputVAT),
		VATPayable: m(pc.vatPayable),

		SalesPriceQuoteCurrency: m(pc.salesPriceQuote),
		ClientAdvance:           m(pc.clientAdvance),

		Profit:    m(pc.profit),
		MarginPct: pct(pc.marginPct),
	}
}
