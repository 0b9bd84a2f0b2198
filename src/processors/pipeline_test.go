package processors

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/AgasiArgent/kvota-sub003/src/models"
)

func canonicalAmount(value string) models.MonetaryAmount {
	v := d(value)
	return models.MonetaryAmount{
		Value:          v,
		Currency:       models.CurrencyRUB,
		ValueCanonical: v,
		RateUsed:       decimal.NewFromInt(1),
		RateSource:     models.RateSourceIdentity,
	}
}

func baseQuote(region models.SellerRegion, delivery string) *models.QuoteInput {
	return &models.QuoteInput{
		QuoteID:       "Q-1",
		OrgID:         "org-1",
		SellerRegion:  region,
		SaleType:      models.SaleTypeImport,
		QuoteCurrency: models.CurrencyRUB,
		DeliveryDate:  day(delivery),
		MarkupPct:     d("20"),
	}
}

func TestVATRateDateBoundary(t *testing.T) {
	cases := []struct {
		name     string
		region   models.SellerRegion
		delivery string
		want     string
	}{
		{"domestic before boundary", models.SellerRegionRU, "2025-12-31", "20"},
		{"domestic at boundary", models.SellerRegionRU, "2026-01-01", "22"},
		{"foreign AE before boundary", models.SellerRegionAE, "2025-12-31", "0"},
		{"foreign AE after boundary", models.SellerRegionAE, "2026-01-01", "0"},
		{"foreign KZ after boundary", models.SellerRegionKZ, "2026-06-15", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := VATRatePct(tc.region, day(tc.delivery))
			if !got.Equal(d(tc.want)) {
				t.Fatalf("VAT rate for %s delivery %s: expected %s, got %s", tc.region, tc.delivery, tc.want, got)
			}
		})
	}
}

func TestPurchasePricePhase(t *testing.T) {
	pipeline := NewQuotePipeline(2)
	product := models.ProductInput{
		ID:                  "p1",
		Quantity:            d("10"),
		SupplierDiscountPct: d("5"),
	}
	pc := pipeline.BeginProduct(product, canonicalAmount("200"), nil, nil)

	// 200 * 10 * (1 - 0.05) = 1900
	if !pc.purchasePrice.Equal(d("1900")) {
		t.Fatalf("purchase price: expected 1900, got %s", pc.purchasePrice)
	}
	if !pc.discountAmount.Equal(d("100")) {
		t.Fatalf("discount amount: expected 100, got %s", pc.discountAmount)
	}
}

func TestExciseOnDeclaredBasisNotCompoundedWithDuty(t *testing.T) {
	pipeline := NewQuotePipeline(2)
	quote := baseQuote(models.SellerRegionRU, "2025-06-01")

	exciseBase := canonicalAmount("1000")
	product := models.ProductInput{
		ID:              "p1",
		Quantity:        d("1"),
		ImportTariffPct: d("10"),
		ExcisePct:       d("30"),
	}
	pc := pipeline.BeginProduct(product, canonicalAmount("5000"), &exciseBase, nil)
	pipeline.BuildCosts(pc, CostShares{}, quote)

	// Excise: 30% of the declared 1000, independent of the 10% duty.
	if !pc.exciseTax.Equal(d("300")) {
		t.Fatalf("excise: expected 300 on the declared basis, got %s", pc.exciseTax)
	}
	// Duty: 10% of the customs value (5000), not of value + excise.
	if !pc.customsDuty.Equal(d("500")) {
		t.Fatalf("duty: expected 500, got %s", pc.customsDuty)
	}
}

func TestEndToEndSingleProductHandComputed(t *testing.T) {
	pipeline := NewQuotePipeline(2)
	quote := baseQuote(models.SellerRegionRU, "2025-06-01")

	product := models.ProductInput{
		ID:       "p1",
		Name:     "widget",
		Quantity: d("100"),
	}
	pc := pipeline.BeginProduct(product, canonicalAmount("50.00"), nil, nil)
	pipeline.BuildCosts(pc, CostShares{}, quote)
	result := pipeline.Finalize(pc, FinalShares{}, quote, decimal.NewFromInt(1))

	// Hand-computed: purchase 5000, no costs, COGS 5000, markup 20% -> 1000,
	// sales ex VAT 6000, VAT 20% -> 1200, incl 7200, input VAT on the customs
	// value 5000 -> 1000, payable 200, profit 1000, margin 16.6667%.
	check := func(name string, got decimal.Decimal, want string) {
		t.Helper()
		if !got.Equal(d(want)) {
			t.Errorf("%s: expected %s, got %s", name, want, got)
		}
	}
	check("purchase price", result.PurchasePrice, "5000")
	check("COGS", result.COGS, "5000")
	check("markup amount", result.MarkupAmount, "1000")
	check("sales price ex VAT", result.SalesPriceExVAT, "6000")
	check("VAT on sale", result.VATOnSale, "1200")
	check("sales price incl VAT", result.SalesPriceIncVAT, "7200")
	check("input VAT", result.InputVAT, "1000")
	check("VAT payable", result.VATPayable, "200")
	check("profit", result.Profit, "1000")
	check("margin pct", result.MarginPct, "16.6667")
}

func TestForeignSellerNoVAT(t *testing.T) {
	pipeline := NewQuotePipeline(2)
	quote := baseQuote(models.SellerRegionAE, "2026-06-01")

	product := models.ProductInput{ID: "p1", Quantity: d("10")}
	pc := pipeline.BeginProduct(product, canonicalAmount("100"), nil, nil)
	pipeline.BuildCosts(pc, CostShares{}, quote)
	result := pipeline.Finalize(pc, FinalShares{}, quote, decimal.NewFromInt(1))

	if !result.VATRatePct.IsZero() || !result.VATOnSale.IsZero() || !result.InputVAT.IsZero() || !result.VATPayable.IsZero() {
		t.Fatalf("foreign seller must carry zero VAT, got rate=%s onSale=%s input=%s payable=%s",
			result.VATRatePct, result.VATOnSale, result.InputVAT, result.VATPayable)
	}
	if !result.SalesPriceIncVAT.Equal(result.SalesPriceExVAT) {
		t.Fatalf("without VAT the incl and excl prices must match: %s vs %s", result.SalesPriceIncVAT, result.SalesPriceExVAT)
	}
}

func TestFinancingFoldedIntoCOGS(t *testing.T) {
	pipeline := NewQuotePipeline(2)
	quote := baseQuote(models.SellerRegionRU, "2025-06-01")

	product := models.ProductInput{ID: "p1", Quantity: d("1")}
	pc := pipeline.BeginProduct(product, canonicalAmount("1000"), nil, nil)
	pipeline.BuildCosts(pc, CostShares{}, quote)
	result := pipeline.Finalize(pc, FinalShares{Financing: d("80"), FinancingCommission: d("20")}, quote, decimal.NewFromInt(1))

	if !result.COGS.Equal(d("1100")) {
		t.Fatalf("COGS must include financing cost and commission: expected 1100, got %s", result.COGS)
	}
	if !result.FinancingCost.Equal(d("80")) || !result.FinancingCommission.Equal(d("20")) {
		t.Fatalf("financing fields: got %s/%s", result.FinancingCost, result.FinancingCommission)
	}
}

func TestMarkupOverridePerProduct(t *testing.T) {
	pipeline := NewQuotePipeline(2)
	quote := baseQuote(models.SellerRegionRU, "2025-06-01")

	override := d("50")
	product := models.ProductInput{ID: "p1", Quantity: d("1"), MarkupPct: &override}
	pc := pipeline.BeginProduct(product, canonicalAmount("1000"), nil, nil)
	pipeline.BuildCosts(pc, CostShares{}, quote)
	result := pipeline.Finalize(pc, FinalShares{}, quote, decimal.NewFromInt(1))

	if !result.MarkupAmount.Equal(d("500")) {
		t.Fatalf("markup override: expected 500, got %s", result.MarkupAmount)
	}
}

func TestAgentPercentageFee(t *testing.T) {
	pipeline := NewQuotePipeline(2)
	quote := baseQuote(models.SellerRegionRU, "2025-06-01")
	quote.Agent = models.AgentSettings{Enabled: true, FeePercent: d("2")}

	product := models.ProductInput{ID: "p1", Quantity: d("1")}
	pc := pipeline.BeginProduct(product, canonicalAmount("1000"), nil, nil)
	pipeline.BuildCosts(pc, CostShares{}, quote)
	result := pipeline.Finalize(pc, FinalShares{}, quote, decimal.NewFromInt(1))

	// 2% of the marked-up price 1200 = 24.
	if !result.AgentFee.Equal(d("24")) {
		t.Fatalf("agent fee: expected 24, got %s", result.AgentFee)
	}
	if !result.SalesPriceExVAT.Equal(d("1224")) {
		t.Fatalf("sales price ex VAT: expected 1224, got %s", result.SalesPriceExVAT)
	}
}

func TestNoIntermediateRounding(t *testing.T) {
	pipeline := NewQuotePipeline(2)
	quote := baseQuote(models.SellerRegionRU, "2025-06-01")
	quote.MarkupPct = d("33.333")

	product := models.ProductInput{ID: "p1", Quantity: d("3"), SupplierDiscountPct: d("1.111")}
	pc := pipeline.BeginProduct(product, canonicalAmount("33.337"), nil, nil)
	pipeline.BuildCosts(pc, CostShares{}, quote)
	result := pipeline.Finalize(pc, FinalShares{}, quote, decimal.NewFromInt(1))

	// purchase = 33.337*3*(1-0.01111) = 98.89981...; rounding only at the
	// boundary means the rounded purchase and COGS match to the cent.
	expected := d("33.337").Mul(d("3")).Mul(decimal.NewFromInt(1).Sub(d("0.01111"))).Round(2)
	if !result.PurchasePrice.Equal(expected) {
		t.Fatalf("purchase price: expected %s, got %s", expected, result.PurchasePrice)
	}
	if !result.COGS.Equal(expected) {
		t.Fatalf("COGS: expected %s, got %s", expected, result.COGS)
	}
}
