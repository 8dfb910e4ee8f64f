package dedup

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"

	"dealscope.dev/dealscope/internal/normalize"
)

func TestSimilarity(t *testing.T) {
	t.Parallel()

	if got := Similarity("acme wireless earbuds", "acme wireless earbuds"); got != 1 {
		t.Fatalf("identical strings should score 1, got %v", got)
	}
	if got := Similarity("", ""); got != 1 {
		t.Fatalf("two empty strings should score 1, got %v", got)
	}
	if got := Similarity("abc", ""); got != 0 {
		t.Fatalf("empty against non-empty should score 0, got %v", got)
	}

	a, b := "acme wireless earbuds", "acme wireless earbuds white"
	forward := Similarity(a, b)
	backward := Similarity(b, a)
	if math.Abs(forward-backward) > 1e-12 {
		t.Fatalf("similarity is not symmetric: %v vs %v", forward, backward)
	}
	// 2*21 matched chars over 21+27 total.
	if math.Abs(forward-0.875) > 1e-9 {
		t.Fatalf("unexpected ratio: got %v want 0.875", forward)
	}

	if got := Similarity("smartphone case cover", "wireless earbuds pro"); got >= 0.85 {
		t.Fatalf("unrelated titles should stay below threshold, got %v", got)
	}
}

func product(title string, source string, price float64) normalize.NormalizedProduct {
	return normalize.NormalizedProduct{
		Title:          title,
		CanonicalTitle: normalize.CanonicalTitle(title),
		Source:         source,
		URL:            "https://" + source + ".example/" + normalize.CanonicalTitle(title),
		Price:          price,
		Currency:       "INR",
	}
}

func TestGroup(t *testing.T) {
	t.Parallel()

	d := New(0.85)
	products := []normalize.NormalizedProduct{
		product("Acme Wireless Earbuds", "amazon", 1999),
		product("Smartphone Case Cover", "flipkart", 299),
		product("Acme Wireless Earbuds White", "snapdeal", 1899),
	}

	groups := d.Group(products)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if len(groups[0]) != 2 {
		t.Fatalf("expected first group to hold both earbuds listings, got %d", len(groups[0]))
	}
	if len(groups[1]) != 1 || groups[1][0].Source != "flipkart" {
		t.Fatalf("expected the case cover as its own group, got %+v", groups[1])
	}
}

func TestGroupEveryProductAssignedOnce(t *testing.T) {
	t.Parallel()

	d := New(0.85)
	products := []normalize.NormalizedProduct{
		product("Acme Wireless Earbuds", "amazon", 1999),
		product("Acme Wireless Earbuds", "flipkart", 1949),
		product("Acme Wireless Earbuds White", "snapdeal", 1899),
		product("USB C Charging Cable 1m", "amazon", 399),
	}

	groups := d.Group(products)
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	if total != len(products) {
		t.Fatalf("grouping must partition the input: got %d assignments for %d products", total, len(products))
	}
}

func TestMerge(t *testing.T) {
	t.Parallel()

	d := New(0.85)
	count := 1234
	rating := 4.4
	products := []normalize.NormalizedProduct{
		product("Smartphone Case Cover", "flipkart", 299),
		{
			Title:          "Acme Wireless Earbuds",
			CanonicalTitle: "acme wireless earbuds",
			Source:         "amazon",
			URL:            "https://amazon.example/earbuds",
			Price:          1999,
			Currency:       "INR",
			Rating:         &rating,
			RatingCount:    &count,
		},
		product("Acme Wireless Earbuds White", "snapdeal", 1899),
	}

	merged := d.Merge(products)
	if len(merged) != 2 {
		t.Fatalf("expected 2 aggregated products, got %d", len(merged))
	}

	// Multi-source group comes first, singleton after.
	earbuds := merged[0]
	if earbuds.MatchCount != 2 {
		t.Fatalf("expected match count 2, got %d", earbuds.MatchCount)
	}
	if earbuds.BestPrice != 1899 || earbuds.BestPriceSource != "snapdeal" {
		t.Fatalf("unexpected best price: %v from %q", earbuds.BestPrice, earbuds.BestPriceSource)
	}
	// The amazon listing is the most complete record, so it provides the base.
	if earbuds.Title != "Acme Wireless Earbuds" {
		t.Fatalf("unexpected base title: %q", earbuds.Title)
	}
	if earbuds.URL != "https://amazon.example/earbuds" || earbuds.Source != "amazon" {
		t.Fatalf("base url/source must carry onto the aggregate: %q %q", earbuds.URL, earbuds.Source)
	}
	if earbuds.Price != 1999 {
		t.Fatalf("base price must carry onto the aggregate, got %v", earbuds.Price)
	}
	if earbuds.Rating == nil || *earbuds.Rating != 4.4 {
		t.Fatalf("unexpected merged rating: %v", earbuds.Rating)
	}
	if len(earbuds.Sources) != 2 {
		t.Fatalf("expected 2 source listings, got %d", len(earbuds.Sources))
	}

	single := merged[1]
	if single.MatchCount != 1 || single.Title != "Smartphone Case Cover" {
		t.Fatalf("unexpected singleton: %+v", single)
	}
	if single.BestPrice != 299 || single.BestPriceSource != "flipkart" {
		t.Fatalf("unexpected singleton best price: %v from %q", single.BestPrice, single.BestPriceSource)
	}
}

func TestMergeBestPriceIsGroupMinimum(t *testing.T) {
	t.Parallel()

	d := New(0.85)
	merged := d.Merge([]normalize.NormalizedProduct{
		product("Acme Wireless Earbuds", "amazon", 1999),
		product("Acme Wireless Earbuds", "snapdeal", 1899),
	})
	if len(merged) != 1 {
		t.Fatalf("expected 1 aggregated product, got %d", len(merged))
	}
	if merged[0].BestPrice != 1899 || merged[0].BestPriceSource != "snapdeal" {
		t.Fatalf("unexpected best price: %v from %q", merged[0].BestPrice, merged[0].BestPriceSource)
	}

	// A listing whose price failed to parse carries price 0, and the minimum
	// honors it rather than skipping it.
	merged = d.Merge([]normalize.NormalizedProduct{
		product("Acme Wireless Earbuds", "amazon", 0),
		product("Acme Wireless Earbuds", "snapdeal", 1899),
	})
	if len(merged) != 1 {
		t.Fatalf("expected 1 aggregated product, got %d", len(merged))
	}
	if merged[0].BestPrice != 0 || merged[0].BestPriceSource != "amazon" {
		t.Fatalf("best price must be the group minimum: %v from %q", merged[0].BestPrice, merged[0].BestPriceSource)
	}
}

func TestMergeIdempotent(t *testing.T) {
	t.Parallel()

	d := New(0.85)
	count := 87
	products := []normalize.NormalizedProduct{
		product("Acme Wireless Earbuds", "amazon", 1999),
		product("Smartphone Case Cover", "flipkart", 299),
		product("Acme Wireless Earbuds White", "snapdeal", 1899),
	}
	products[0].RatingCount = &count

	first := d.Merge(products)
	second := d.Merge(products)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("merge of identical input must be identical:\n%+v\nvs\n%+v", first, second)
	}
}

func TestLowerThresholdGroupsAtLeastAsMuch(t *testing.T) {
	t.Parallel()

	products := []normalize.NormalizedProduct{
		product("Acme Wireless Earbuds", "amazon", 1999),
		product("Acme Wireless Earbuds White", "snapdeal", 1899),
		product("Acme Wired Earbuds", "flipkart", 999),
		product("Smartphone Case Cover", "flipkart", 299),
		product("USB C Charging Cable 1m", "amazon", 399),
	}

	duplicateGroups := func(threshold float64) int {
		found := 0
		for _, group := range New(threshold).Group(products) {
			if len(group) > 1 {
				found++
			}
		}
		return found
	}

	thresholds := []float64{0.5, 0.7, 0.85, 0.95}
	for i := 1; i < len(thresholds); i++ {
		loose, strict := duplicateGroups(thresholds[i-1]), duplicateGroups(thresholds[i])
		if loose < strict {
			t.Fatalf("threshold %v found %d duplicate groups, stricter %v found %d",
				thresholds[i-1], loose, thresholds[i], strict)
		}
	}
}

func TestAggregatedProductFlatRecord(t *testing.T) {
	t.Parallel()

	d := New(0.85)
	merged := d.Merge([]normalize.NormalizedProduct{
		product("Acme Wireless Earbuds", "amazon", 1999),
		product("Acme Wireless Earbuds White", "snapdeal", 1899),
	})

	payload, err := json.Marshal(merged[0])
	if err != nil {
		t.Fatalf("marshal aggregate: %v", err)
	}

	var record map[string]any
	if err := json.Unmarshal(payload, &record); err != nil {
		t.Fatalf("unmarshal aggregate: %v", err)
	}
	for _, key := range []string{"url", "title", "canonical_title", "source", "price", "currency", "sources", "best_price"} {
		if _, ok := record[key]; !ok {
			t.Fatalf("aggregate record is missing %q: %s", key, payload)
		}
	}
	sources, ok := record["sources"].([]any)
	if !ok || len(sources) != 2 {
		t.Fatalf("expected 2 entries under sources, got %v", record["sources"])
	}
}

func TestNewThresholdFallback(t *testing.T) {
	t.Parallel()

	if got := New(0).Threshold(); got != DefaultThreshold {
		t.Fatalf("expected default threshold, got %v", got)
	}
	if got := New(1.5).Threshold(); got != DefaultThreshold {
		t.Fatalf("expected default threshold for out-of-range input, got %v", got)
	}
	if got := New(0.9).Threshold(); got != 0.9 {
		t.Fatalf("expected explicit threshold, got %v", got)
	}
}
