package processors

import (
	"github.com/shopspring/decimal"

	"github.com/AgasiArgent/kvota-sub003/src/models"
	"github.com/AgasiArgent/kvota-sub003/src/utils"
)

// AggregationPolicy declares how a summary field is derived from the
// per-product results. The policy table is fixed, not inferred: getting a
// field's policy wrong silently corrupts every cross-quote analytics report,
// so the table is exported and tested for exhaustiveness.
type AggregationPolicy int

const (
	// PolicySum: the field is the sum across products.
	PolicySum AggregationPolicy = iota
	// PolicyRecomputedRatio: the field is recomputed from aggregated
	// numerator and denominator, never averaged across products.
	PolicyRecomputedRatio
	// PolicyQuoteConstant: the field is a quote-level constant copied
	// through once, unchanged.
	PolicyQuoteConstant
)

// SummaryField names every numeric field of QuoteCalculationSummary, keyed by
// its JSON tag.
type SummaryField string

const (
	SumTotalQuantity                 SummaryField = "total_quantity"
	SumTotalWeightKg                 SummaryField = "total_weight_kg"
	SumTotalPurchasePrice            SummaryField = "total_purchase_price"
	SumTotalSupplierDiscountAmount   SummaryField = "total_supplier_discount_amount"
	SumTotalLogisticsIndividual      SummaryField = "total_logistics_individual"
	SumTotalLogisticsAllocated       SummaryField = "total_logistics_allocated"
	SumTotalLogisticsCost            SummaryField = "total_logistics_cost"
	SumTotalCustomsValue             SummaryField = "total_customs_value"
	SumTotalCustomsDuty              SummaryField = "total_customs_duty"
	SumTotalExciseTax                SummaryField = "total_excise_tax"
	SumTotalBrokerageCost            SummaryField = "total_brokerage_cost"
	SumTotalInsuranceCost            SummaryField = "total_insurance_cost"
	SumTotalWarehousingCost          SummaryField = "total_warehousing_cost"
	SumTotalDocumentationCost        SummaryField = "total_documentation_cost"
	SumTotalFinancingCost            SummaryField = "total_financing_cost"
	SumTotalFinancingCommission      SummaryField = "total_financing_commission"
	SumTotalCOGS                     SummaryField = "total_cogs"
	SumTotalMarkupAmount             SummaryField = "total_markup_amount"
	SumTotalForexRiskReserve         SummaryField = "total_forex_risk_reserve"
	SumTotalAgentFee                 SummaryField = "total_agent_fee"
	SumTotalSalesPriceExVAT          SummaryField = "total_sales_price_ex_vat"
	SumTotalSalesPriceIncVAT         SummaryField = "total_sales_price_inc_vat"
	SumTotalVATOnSale                SummaryField = "total_vat_on_sale"
	SumTotalInputVAT                 SummaryField = "total_input_vat"
	SumTotalVATPayable               SummaryField = "total_vat_payable"
	SumTotalSalesPriceQuoteCurrency  SummaryField = "total_sales_price_quote_currency"
	SumTotalClientAdvance            SummaryField = "total_client_advance"
	SumTotalProfit                   SummaryField = "total_profit"
	SumMarginPct                     SummaryField = "margin_pct"
	SumEffectiveMarkupPct            SummaryField = "effective_markup_pct"
	SumVATRatePct                    SummaryField = "vat_rate_pct"
	SumAdvancePct                    SummaryField = "advance_pct"
	SumForexRiskPct                  SummaryField = "forex_risk_pct"
	SumFinancingCommissionPct        SummaryField = "financing_commission_pct"
	SumDailyLoanInterestPct          SummaryField = "daily_loan_interest_pct"
	SumInsurancePct                  SummaryField = "insurance_pct"
)

var fieldPolicies = map[SummaryField]AggregationPolicy{
	SumTotalQuantity:                PolicySum,
	SumTotalWeightKg:                PolicySum,
	SumTotalPurchasePrice:           PolicySum,
	SumTotalSupplierDiscountAmount:  PolicySum,
	SumTotalLogisticsIndividual:     PolicySum,
	SumTotalLogisticsAllocated:      PolicySum,
	SumTotalLogisticsCost:           PolicySum,
	SumTotalCustomsValue:            PolicySum,
	SumTotalCustomsDuty:             PolicySum,
	SumTotalExciseTax:               PolicySum,
	SumTotalBrokerageCost:           PolicySum,
	SumTotalInsuranceCost:           PolicySum,
	SumTotalWarehousingCost:         PolicySum,
	SumTotalDocumentationCost:       PolicySum,
	SumTotalFinancingCost:           PolicySum,
	SumTotalFinancingCommission:     PolicySum,
	SumTotalCOGS:                    PolicySum,
	SumTotalMarkupAmount:            PolicySum,
	SumTotalForexRiskReserve:        PolicySum,
	SumTotalAgentFee:                PolicySum,
	SumTotalSalesPriceExVAT:         PolicySum,
	SumTotalSalesPriceIncVAT:        PolicySum,
	SumTotalVATOnSale:               PolicySum,
	SumTotalInputVAT:                PolicySum,
	SumTotalVATPayable:              PolicySum,
	SumTotalSalesPriceQuoteCurrency: PolicySum,
	SumTotalClientAdvance:           PolicySum,
	SumTotalProfit:                  PolicySum,
	SumMarginPct:                    PolicyRecomputedRatio,
	SumEffectiveMarkupPct:           PolicyRecomputedRatio,
	SumVATRatePct:                   PolicyQuoteConstant,
	SumAdvancePct:                   PolicyQuoteConstant,
	SumForexRiskPct:                 PolicyQuoteConstant,
	SumFinancingCommissionPct:       PolicyQuoteConstant,
	SumDailyLoanInterestPct:         PolicyQuoteConstant,
	SumInsurancePct:                 PolicyQuoteConstant,
}

// FieldPolicies returns a copy of the static aggregation-policy table.
func FieldPolicies() map[SummaryField]AggregationPolicy {
	out := make(map[SummaryField]AggregationPolicy, len(fieldPolicies))
	for k, v := range fieldPolicies {
		out[k] = v
	}
	return out
}

// QuoteAggregator folds per-product results into the quote summary following
// the policy table.
type QuoteAggregator struct{}

func NewQuoteAggregator() *QuoteAggregator { return &QuoteAggregator{} }

func (a *QuoteAggregator) Summarize(results []models.CalculationResult, quote *models.QuoteInput) models.QuoteCalculationSummary {
	s := models.QuoteCalculationSummary{
		QuoteID:       quote.QuoteID,
		QuoteCurrency: quote.QuoteCurrency,
		ProductCount:  len(results),
	}

	for _, r := range results {
		s.TotalQuantity = s.TotalQuantity.Add(r.Quantity)
		s.TotalWeightKg = s.TotalWeightKg.Add(r.WeightKg)
		s.TotalPurchasePrice = s.TotalPurchasePrice.Add(r.PurchasePrice)
		s.TotalSupplierDiscountAmount = s.TotalSupplierDiscountAmount.Add(r.SupplierDiscountAmount)
		s.TotalLogisticsIndividual = s.TotalLogisticsIndividual.Add(r.LogisticsIndividual)
		s.TotalLogisticsAllocated = s.TotalLogisticsAllocated.Add(r.LogisticsAllocated)
		s.TotalLogisticsCost = s.TotalLogisticsCost.Add(r.LogisticsCost)
		s.TotalCustomsValue = s.TotalCustomsValue.Add(r.CustomsValue)
		s.TotalCustomsDuty = s.TotalCustomsDuty.Add(r.CustomsDuty)
		s.TotalExciseTax = s.TotalExciseTax.Add(r.ExciseTax)
		s.TotalBrokerageCost = s.TotalBrokerageCost.Add(r.BrokerageCost)
		s.TotalInsuranceCost = s.TotalInsuranceCost.Add(r.InsuranceCost)
		s.TotalWarehousingCost = s.TotalWarehousingCost.Add(r.WarehousingCost)
		s.TotalDocumentationCost = s.TotalDocumentationCost.Add(r.DocumentationCost)
		s.TotalFinancingCost = s.TotalFinancingCost.Add(r.FinancingCost)
		s.TotalFinancingCommission = s.TotalFinancingCommission.Add(r.FinancingCommission)
		s.TotalCOGS = s.TotalCOGS.Add(r.COGS)
		s.TotalMarkupAmount = s.TotalMarkupAmount.Add(r.MarkupAmount)
		s.TotalForexRiskReserve = s.TotalForexRiskReserve.Add(r.ForexRiskReserve)
		s.TotalAgentFee = s.TotalAgentFee.Add(r.AgentFee)
		s.TotalSalesPriceExVAT = s.TotalSalesPriceExVAT.Add(r.SalesPriceExVAT)
		s.TotalSalesPriceIncVAT = s.TotalSalesPriceIncVAT.Add(r.SalesPriceIncVAT)
		s.TotalVATOnSale = s.TotalVATOnSale.Add(r.VATOnSale)
		s.TotalInputVAT = s.TotalInputVAT.Add(r.InputVAT)
		s.TotalVATPayable = s.TotalVATPayable.Add(r.VATPayable)
		s.TotalSalesPriceQuoteCurrency = s.TotalSalesPriceQuoteCurrency.Add(r.SalesPriceQuoteCurrency)
		s.TotalClientAdvance = s.TotalClientAdvance.Add(r.ClientAdvance)
		s.TotalProfit = s.TotalProfit.Add(r.Profit)
	}

	// Ratio fields are re-derived from the aggregated numerator and
	// denominator. Averaging per-product margins is exactly the defect this
	// table exists to prevent.
	hundred := decimal.NewFromInt(100)
	s.MarginPct = utils.SafeDiv(s.TotalProfit, s.TotalSalesPriceExVAT).Mul(hundred).Round(4)
	s.EffectiveMarkupPct = utils.SafeDiv(s.TotalMarkupAmount, s.TotalCOGS).Mul(hundred).Round(4)

	// Quote-level constants pass through once, independent of product count.
	s.VATRatePct = VATRatePct(quote.SellerRegion, quote.DeliveryDate).Round(4)
	s.AdvancePct = quote.AdvancePct
	s.ForexRiskPct = quote.Rates.ForexRiskPct
	s.FinancingCommissionPct = quote.Rates.FinancingCommissionPct
	s.DailyLoanInterestPct = quote.Rates.DailyLoanInterestPct
	s.InsurancePct = quote.Rates.InsurancePct

	return s
}
