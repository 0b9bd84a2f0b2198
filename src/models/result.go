package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CalculationResult is the full set of calculated fields for one product.
// All monetary values are in the canonical currency, rounded to the output
// precision. A result is written once per calculation run and never mutated;
// a recalculation produces a new result under a new run ID.
type CalculationResult struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`

	Quantity decimal.Decimal `json:"quantity"`
	WeightKg decimal.Decimal `json:"weight_kg"`

	PurchasePrice          decimal.Decimal `json:"purchase_price"`
	SupplierDiscountAmount decimal.Decimal `json:"supplier_discount_amount"`

	LogisticsIndividual decimal.Decimal `json:"logistics_individual"`
	LogisticsAllocated  decimal.Decimal `json:"logistics_allocated"`
	LogisticsCost       decimal.Decimal `json:"logistics_cost"`

	CustomsValue decimal.Decimal `json:"customs_value"`
	CustomsDuty  decimal.Decimal `json:"customs_duty"`
	ExciseTax    decimal.Decimal `json:"excise_tax"`

	BrokerageCost     decimal.Decimal `json:"brokerage_cost"`
	InsuranceCost     decimal.Decimal `json:"insurance_cost"`
	WarehousingCost   decimal.Decimal `json:"warehousing_cost"`
	DocumentationCost decimal.Decimal `json:"documentation_cost"`

	FinancingCost       decimal.Decimal `json:"financing_cost"`
	FinancingCommission decimal.Decimal `json:"financing_commission"`

	COGS decimal.Decimal `json:"cogs"`

	MarkupAmount     decimal.Decimal `json:"markup_amount"`
	ForexRiskReserve decimal.Decimal `json:"forex_risk_reserve"`
	AgentFee         decimal.Decimal `json:"agent_fee"`

	SalesPriceExVAT  decimal.Decimal `json:"sales_price_ex_vat"`
	SalesPriceIncVAT decimal.Decimal `json:"sales_price_inc_vat"`

	VATRatePct decimal.Decimal `json:"vat_rate_pct"`
	VATOnSale  decimal.Decimal `json:"vat_on_sale"`
	InputVAT   decimal.Decimal `json:"input_vat"`
	VATPayable decimal.Decimal `json:"vat_payable"`

	SalesPriceQuoteCurrency decimal.Decimal `json:"sales_price_quote_currency"`
	ClientAdvance           decimal.Decimal `json:"client_advance"`

	Profit    decimal.Decimal `json:"profit"`
	MarginPct decimal.Decimal `json:"margin_pct"`
}

// QuoteCalculationSummary is the per-quote aggregate over all product results.
// Monetary fields are sums, percentage fields are recomputed from aggregated
// numerator and denominator, and quote-level constants are copied through.
type QuoteCalculationSummary struct {
	QuoteID       string   `json:"quote_id"`
	QuoteCurrency Currency `json:"quote_currency"`
	ProductCount  int      `json:"product_count"`

	TotalQuantity decimal.Decimal `json:"total_quantity"`
	TotalWeightKg decimal.Decimal `json:"total_weight_kg"`

	TotalPurchasePrice           decimal.Decimal `json:"total_purchase_price"`
	TotalSupplierDiscountAmount  decimal.Decimal `json:"total_supplier_discount_amount"`
	TotalLogisticsIndividual     decimal.Decimal `json:"total_logistics_individual"`
	TotalLogisticsAllocated      decimal.Decimal `json:"total_logistics_allocated"`
	TotalLogisticsCost           decimal.Decimal `json:"total_logistics_cost"`
	TotalCustomsValue            decimal.Decimal `json:"total_customs_value"`
	TotalCustomsDuty             decimal.Decimal `json:"total_customs_duty"`
	TotalExciseTax               decimal.Decimal `json:"total_excise_tax"`
	TotalBrokerageCost           decimal.Decimal `json:"total_brokerage_cost"`
	TotalInsuranceCost           decimal.Decimal `json:"total_insurance_cost"`
	TotalWarehousingCost         decimal.Decimal `json:"total_warehousing_cost"`
	TotalDocumentationCost       decimal.Decimal `json:"total_documentation_cost"`
	TotalFinancingCost           decimal.Decimal `json:"total_financing_cost"`
	TotalFinancingCommission     decimal.Decimal `json:"total_financing_commission"`
	TotalCOGS                    decimal.Decimal `json:"total_cogs"`
	TotalMarkupAmount            decimal.Decimal `json:"total_markup_amount"`
	TotalForexRiskReserve        decimal.Decimal `json:"total_forex_risk_reserve"`
	TotalAgentFee                decimal.Decimal `json:"total_agent_fee"`
	TotalSalesPriceExVAT         decimal.Decimal `json:"total_sales_price_ex_vat"`
	TotalSalesPriceIncVAT        decimal.Decimal `json:"total_sales_price_inc_vat"`
	TotalVATOnSale               decimal.Decimal `json:"total_vat_on_sale"`
	TotalInputVAT                decimal.Decimal `json:"total_input_vat"`
	TotalVATPayable              decimal.Decimal `json:"total_vat_payable"`
	TotalSalesPriceQuoteCurrency decimal.Decimal `json:"total_sales_price_quote_currency"`
	TotalClientAdvance           decimal.Decimal `json:"total_client_advance"`
	TotalProfit                  decimal.Decimal `json:"total_profit"`

	MarginPct          decimal.Decimal `json:"margin_pct"`           // recomputed: sum(profit)/sum(sales ex VAT)
	EffectiveMarkupPct decimal.Decimal `json:"effective_markup_pct"` // recomputed: sum(markup)/sum(cogs)

	VATRatePct             decimal.Decimal `json:"vat_rate_pct"`
	AdvancePct             decimal.Decimal `json:"advance_pct"`
	ForexRiskPct           decimal.Decimal `json:"forex_risk_pct"`
	FinancingCommissionPct decimal.Decimal `json:"financing_commission_pct"`
	DailyLoanInterestPct   decimal.Decimal `json:"daily_loan_interest_pct"`
	InsurancePct           decimal.Decimal `json:"insurance_pct"`
}

// RateEntry is one resolved exchange rate inside a run snapshot.
type RateEntry struct {
	From     Currency        `json:"from"`
	To       Currency        `json:"to"`
	OrgID    string          `json:"org_id"`
	AsOf     time.Time       `json:"as_of"`
	Rate     decimal.Decimal `json:"rate"`
	Source   RateSource      `json:"source"`
	RateDate time.Time       `json:"rate_date"`
}

// ExchangeRateSnapshot is the exact set of rates a run resolved, persisted
// alongside the results so the run can be audited and replayed.
type ExchangeRateSnapshot struct {
	Entries []RateEntry `json:"entries"`
}

// EventDelayCost attributes extra financing cost to a specific delayed event.
type EventDelayCost struct {
	Event     TimelineEventType `json:"event"`
	DelayDays int               `json:"delay_days"`
	ExtraCost decimal.Decimal   `json:"extra_cost"`
}

// FinancingBreakdown is the quote-level financing result before allocation
// across products.
type FinancingBreakdown struct {
	Stage1Days         int              `json:"stage1_days"`
	Stage2Days         int              `json:"stage2_days"`
	Stage1Interest     decimal.Decimal  `json:"stage1_interest"`
	Stage2Interest     decimal.Decimal  `json:"stage2_interest"`
	Commission         decimal.Decimal  `json:"commission"`
	PlannedCost        decimal.Decimal  `json:"planned_cost"`
	ActualCost         decimal.Decimal  `json:"actual_cost"`
	TotalCost          decimal.Decimal  `json:"total_cost"` // stage1 + stage2 interest at effective dates
	ExtraCostFromDelay []EventDelayCost `json:"extra_cost_from_delay,omitempty"`
}
