package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SellerRegion is the registration region of the seller company on the quote.
// RU sellers charge Russian VAT; AE and KZ sellers invoice without VAT.
type SellerRegion string

const (
	SellerRegionRU SellerRegion = "RU"
	SellerRegionAE SellerRegion = "AE"
	SellerRegionKZ SellerRegion = "KZ"
)

// Domestic reports whether the region is subject to Russian VAT.
func (r SellerRegion) Domestic() bool { return r == SellerRegionRU }

func (r SellerRegion) Valid() bool {
	return r == SellerRegionRU || r == SellerRegionAE || r == SellerRegionKZ
}

type SaleType string

const (
	SaleTypeImport SaleType = "import" // goods imported under this quote
	SaleTypeResale SaleType = "resale" // goods already in free circulation
)

type Incoterms string

const (
	IncotermsEXW Incoterms = "EXW"
	IncotermsFOB Incoterms = "FOB"
	IncotermsCIF Incoterms = "CIF"
	IncotermsDAP Incoterms = "DAP"
	IncotermsDDP Incoterms = "DDP"
)

// AllocationBasis selects the per-product weighting used to split a shared
// quote-level cost across products.
type AllocationBasis string

const (
	AllocationByValue  AllocationBasis = "value"  // declared value (purchase price)
	AllocationByWeight AllocationBasis = "weight" // gross weight
)

// CostLeg is one quote-level lump-sum cost entered in an arbitrary currency,
// e.g. a logistics leg or a brokerage service.
type CostLeg struct {
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
	Basis    AllocationBasis `json:"basis"`
}

// AgentSettings configures the sales-agent fee applied on top of the marked-up price.
type AgentSettings struct {
	Enabled     bool            `json:"enabled"`
	FixedFee    bool            `json:"fixed_fee"` // true: FeeAmount lump sum, false: FeePercent of marked-up price
	FeeAmount   decimal.Decimal `json:"fee_amount"`
	FeeCurrency Currency        `json:"fee_currency"`
	FeePercent  decimal.Decimal `json:"fee_percent"`
}

// AdminRates are the admin-configured percentage rates shared by every product
// on the quote. All values are percentages (5 means 5%).
type AdminRates struct {
	ForexRiskPct           decimal.Decimal `json:"forex_risk_pct"`
	FinancingCommissionPct decimal.Decimal `json:"financing_commission_pct"`
	DailyLoanInterestPct   decimal.Decimal `json:"daily_loan_interest_pct"`
	InsurancePct           decimal.Decimal `json:"insurance_pct"`
}

// TimelineEventType names the ordered project milestones that drive financing.
type TimelineEventType string

const (
	EventContractSigned TimelineEventType = "contract_signed"
	EventAdvancePaid    TimelineEventType = "advance_paid"
	EventGoodsShipped   TimelineEventType = "goods_shipped"
	EventCustomsCleared TimelineEventType = "customs_cleared"
	EventFinalPayment   TimelineEventType = "final_payment"
)

// TimelineOrder is the canonical ordering of timeline events.
var TimelineOrder = []TimelineEventType{
	EventContractSigned,
	EventAdvancePaid,
	EventGoodsShipped,
	EventCustomsCleared,
	EventFinalPayment,
}

// TimelineEvent carries a planned date and, once known, the actual date.
// Actual dates are filled in by the workflow layer as the project executes.
type TimelineEvent struct {
	Type    TimelineEventType `json:"type"`
	Planned time.Time         `json:"planned"`
	Actual  *time.Time        `json:"actual,omitempty"`
}

// ProductInput is the per-product commercial and logistics input snapshot.
// Owned by the quote persistence layer; the engine never mutates it.
type ProductInput struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Quantity        decimal.Decimal `json:"quantity"`
	WeightKg        decimal.Decimal `json:"weight_kg"`
	BasePrice       decimal.Decimal `json:"base_price"` // unit price in BaseCurrency
	BaseCurrency    Currency        `json:"base_currency"`
	SupplierCountry string          `json:"supplier_country"`
	TariffCode      string          `json:"tariff_code"`
	ImportTariffPct decimal.Decimal `json:"import_tariff_pct"`
	ExcisePct       decimal.Decimal `json:"excise_pct"`
	// ExciseBase is the separately declared excise basis; nil means no excise.
	ExciseBase         *decimal.Decimal `json:"excise_base,omitempty"`
	ExciseBaseCurrency Currency         `json:"excise_base_currency,omitempty"`
	// MarkupPct overrides the quote-level markup when set.
	MarkupPct           *decimal.Decimal `json:"markup_pct,omitempty"`
	SupplierDiscountPct decimal.Decimal  `json:"supplier_discount_pct"`
	// IndividualLogistics opts the product out of logistics allocation
	// ("mixed mode"): this amount is used and the quote-level lump sum is
	// distributed among the remaining products only.
	IndividualLogistics         *decimal.Decimal `json:"individual_logistics,omitempty"`
	IndividualLogisticsCurrency Currency         `json:"individual_logistics_currency,omitempty"`
}

// QuoteInput holds the quote-level fields shared by all products.
type QuoteInput struct {
	QuoteID         string          `json:"quote_id"`
	OrgID           string          `json:"org_id"`
	SellerCompany   string          `json:"seller_company"`
	SellerRegion    SellerRegion    `json:"seller_region"`
	SaleType        SaleType        `json:"sale_type"`
	Incoterms       Incoterms       `json:"incoterms"`
	QuoteCurrency   Currency        `json:"quote_currency"`
	DeliveryDate    time.Time       `json:"delivery_date"`
	AdvancePct      decimal.Decimal `json:"advance_pct"`
	PaymentTermDays int             `json:"payment_term_days"`
	MarkupPct       decimal.Decimal `json:"markup_pct"` // default markup, overridable per product

	LogisticsLegs     []CostLeg `json:"logistics_legs"`
	BrokerageLegs     []CostLeg `json:"brokerage_legs"`
	WarehousingLegs   []CostLeg `json:"warehousing_legs"`
	DocumentationLegs []CostLeg `json:"documentation_legs"`

	Agent    AgentSettings   `json:"agent"`
	Rates    AdminRates      `json:"rates"`
	Timeline []TimelineEvent `json:"timeline"`

	// AllocationBasis is the default basis for financing and fixed agent fee
	// allocation. Cost legs carry their own basis.
	AllocationBasis AllocationBasis `json:"allocation_basis"`
}
