package processors

import (
	"reflect"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/AgasiArgent/kvota-sub003/src/models"
)

func TestMarginIsRecomputedNotAveraged(t *testing.T) {
	// Counterexample where the two approaches differ: per-product margins
	// are 10% and 30% (average 20%) but the aggregated margin is
	// (10+90)/(100+300) = 25%.
	results := []models.CalculationResult{
		{ProductID: "a", Profit: d("10"), SalesPriceExVAT: d("100"), COGS: d("90"), MarginPct: d("10")},
		{ProductID: "b", Profit: d("90"), SalesPriceExVAT: d("300"), COGS: d("210"), MarginPct: d("30")},
	}
	quote := baseQuote(models.SellerRegionRU, "2025-06-01")

	summary := NewQuoteAggregator().Summarize(results, quote)

	if !summary.MarginPct.Equal(d("25")) {
		t.Fatalf("margin must be recomputed from aggregated profit/revenue: expected 25, got %s", summary.MarginPct)
	}
	if summary.MarginPct.Equal(d("20")) {
		t.Fatal("margin was averaged across products")
	}
	if !summary.TotalProfit.Equal(d("100")) || !summary.TotalSalesPriceExVAT.Equal(d("400")) {
		t.Fatalf("sums: got profit %s, revenue %s", summary.TotalProfit, summary.TotalSalesPriceExVAT)
	}
}

func TestQuoteConstantsDoNotScaleWithProductCount(t *testing.T) {
	quote := baseQuote(models.SellerRegionRU, "2025-06-01")
	quote.Rates.ForexRiskPct = d("7")
	quote.AdvancePct = d("30")

	for _, n := range []int{1, 3, 10} {
		results := make([]models.CalculationResult, n)
		for i := range results {
			results[i] = models.CalculationResult{Profit: d("10"), SalesPriceExVAT: d("100")}
		}
		summary := NewQuoteAggregator().Summarize(results, quote)
		if !summary.ForexRiskPct.Equal(d("7")) {
			t.Fatalf("with %d products forex risk rate must stay 7, got %s", n, summary.ForexRiskPct)
		}
		if !summary.AdvancePct.Equal(d("30")) {
			t.Fatalf("with %d products advance pct must stay 30, got %s", n, summary.AdvancePct)
		}
		if !summary.VATRatePct.Equal(d("20")) {
			t.Fatalf("with %d products VAT rate must stay 20, got %s", n, summary.VATRatePct)
		}
	}
}

func TestSumFieldsAggregate(t *testing.T) {
	quote := baseQuote(models.SellerRegionRU, "2025-06-01")
	results := []models.CalculationResult{
		{PurchasePrice: d("100.50"), VATPayable: d("10"), ClientAdvance: d("33.34")},
		{PurchasePrice: d("200.25"), VATPayable: d("-2"), ClientAdvance: d("66.66")},
	}

	summary := NewQuoteAggregator().Summarize(results, quote)

	if !summary.TotalPurchasePrice.Equal(d("300.75")) {
		t.Errorf("total purchase price: expected 300.75, got %s", summary.TotalPurchasePrice)
	}
	if !summary.TotalVATPayable.Equal(d("8")) {
		t.Errorf("total VAT payable: expected 8, got %s", summary.TotalVATPayable)
	}
	if !summary.TotalClientAdvance.Equal(d("100")) {
		t.Errorf("total client advance: expected 100, got %s", summary.TotalClientAdvance)
	}
	if summary.ProductCount != 2 {
		t.Errorf("product count: expected 2, got %d", summary.ProductCount)
	}
}

// Every numeric summary field must have a declared aggregation policy, and
// every declared policy must point at a real field. Silent drift between the
// summary struct and the policy table corrupts downstream analytics.
func TestFieldPolicyTableIsExhaustive(t *testing.T) {
	policies := FieldPolicies()
	decimalType := reflect.TypeOf(decimal.Decimal{})
	summaryType := reflect.TypeOf(models.QuoteCalculationSummary{})

	declared := make(map[string]bool)
	for i := 0; i < summaryType.NumField(); i++ {
		field := summaryType.Field(i)
		if field.Type != decimalType {
			continue
		}
		tag := strings.Split(field.Tag.Get("json"), ",")[0]
		declared[tag] = true
		if _, ok := policies[SummaryField(tag)]; !ok {
			t.Errorf("summary field %s (%s) has no aggregation policy", field.Name, tag)
		}
	}
	for name := range policies {
		if !declared[string(name)] {
			t.Errorf("policy table names %s which is not a summary field", name)
		}
	}
}
