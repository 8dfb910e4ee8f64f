package httpapi

import (
	"testing"

	"dealscope.dev/dealscope/internal/dedup"
)

func TestParsePositiveInt(t *testing.T) {
	t.Parallel()

	if got, err := parsePositiveInt("", 20, 1, 100); err != nil || got != 20 {
		t.Fatalf("blank input should yield the default, got %d (%v)", got, err)
	}
	if got, err := parsePositiveInt(" 7 ", 20, 1, 100); err != nil || got != 7 {
		t.Fatalf("unexpected parse result: %d (%v)", got, err)
	}
	if _, err := parsePositiveInt("abc", 20, 1, 100); err == nil {
		t.Fatalf("expected error for non-integer input")
	}
	if _, err := parsePositiveInt("0", 20, 1, 100); err == nil {
		t.Fatalf("expected error below the minimum")
	}
	if _, err := parsePositiveInt("101", 20, 1, 100); err == nil {
		t.Fatalf("expected error above the maximum")
	}
}

func TestParseIDList(t *testing.T) {
	t.Parallel()

	ids, err := parseIDList("3, 1,2,3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 3 || ids[0] != 3 || ids[1] != 1 || ids[2] != 2 {
		t.Fatalf("expected deduped ids in first-seen order, got %v", ids)
	}

	if _, err := parseIDList(""); err == nil {
		t.Fatalf("expected error for empty list")
	}
	if _, err := parseIDList("1,x,3"); err == nil {
		t.Fatalf("expected error for non-numeric id")
	}
	if _, err := parseIDList("1,-2"); err == nil {
		t.Fatalf("expected error for negative id")
	}
}

func TestParseSortParams(t *testing.T) {
	t.Parallel()

	sortBy, order, fieldErr := parseSortParams("", "")
	if fieldErr != nil || sortBy != "price" || order != "asc" {
		t.Fatalf("unexpected defaults: %q %q %v", sortBy, order, fieldErr)
	}

	// Rating defaults to descending; highest rated first is the useful view.
	sortBy, order, fieldErr = parseSortParams("rating", "")
	if fieldErr != nil || sortBy != "rating" || order != "desc" {
		t.Fatalf("unexpected rating defaults: %q %q %v", sortBy, order, fieldErr)
	}

	sortBy, order, fieldErr = parseSortParams(" TITLE ", "DESC")
	if fieldErr != nil || sortBy != "title" || order != "desc" {
		t.Fatalf("case folding failed: %q %q %v", sortBy, order, fieldErr)
	}

	if _, _, fieldErr = parseSortParams("popularity", ""); fieldErr == nil {
		t.Fatalf("expected error for unknown sort field")
	}
	if _, _, fieldErr = parseSortParams("price", "sideways"); fieldErr == nil {
		t.Fatalf("expected error for unknown order")
	}
}

func ratingPtr(v float64) *float64 { return &v }

func TestSortProducts(t *testing.T) {
	t.Parallel()

	products := []dedup.AggregatedProduct{
		{Title: "B", BestPrice: 500, Rating: ratingPtr(3.9)},
		{Title: "A", BestPrice: 0},
		{Title: "C", BestPrice: 100, Rating: ratingPtr(4.8)},
	}

	byPrice := append([]dedup.AggregatedProduct(nil), products...)
	sortProducts(byPrice, "price", "asc")
	if byPrice[0].Title != "C" || byPrice[1].Title != "B" || byPrice[2].Title != "A" {
		t.Fatalf("unpriced products must sink to the end: %v", titles(byPrice))
	}

	byPriceDesc := append([]dedup.AggregatedProduct(nil), products...)
	sortProducts(byPriceDesc, "price", "desc")
	if byPriceDesc[0].Title != "B" || byPriceDesc[2].Title != "A" {
		t.Fatalf("unpriced products must sink even descending: %v", titles(byPriceDesc))
	}

	byRating := append([]dedup.AggregatedProduct(nil), products...)
	sortProducts(byRating, "rating", "desc")
	if byRating[0].Title != "C" || byRating[1].Title != "B" || byRating[2].Title != "A" {
		t.Fatalf("unrated products must sink to the end: %v", titles(byRating))
	}

	byTitle := append([]dedup.AggregatedProduct(nil), products...)
	sortProducts(byTitle, "title", "asc")
	if byTitle[0].Title != "A" || byTitle[1].Title != "B" || byTitle[2].Title != "C" {
		t.Fatalf("unexpected title order: %v", titles(byTitle))
	}
}

func titles(products []dedup.AggregatedProduct) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.Title)
	}
	return out
}

func TestPaginate(t *testing.T) {
	t.Parallel()

	products := make([]dedup.AggregatedProduct, 5)
	for i := range products {
		products[i].Title = string(rune('A' + i))
	}

	page, meta := paginate(products, 1, 2)
	if len(page) != 2 || meta.Total != 5 || meta.TotalPages != 3 {
		t.Fatalf("unexpected first page: %d items, meta %+v", len(page), meta)
	}

	page, meta = paginate(products, 3, 2)
	if len(page) != 1 || page[0].Title != "E" {
		t.Fatalf("unexpected last page: %v", titles(page))
	}
	if meta.Page != 3 {
		t.Fatalf("unexpected page number: %d", meta.Page)
	}

	page, meta = paginate(products, 9, 2)
	if len(page) != 0 {
		t.Fatalf("out-of-range page must be empty, got %v", titles(page))
	}
	if meta.TotalPages != 3 {
		t.Fatalf("unexpected total pages: %d", meta.TotalPages)
	}

	page, meta = paginate(nil, 1, 10)
	if len(page) != 0 || meta.TotalPages != 1 {
		t.Fatalf("empty input should report one empty page, got %+v", meta)
	}
}

func TestIsClientError(t *testing.T) {
	t.Parallel()

	if isClientError(nil) {
		t.Fatalf("nil error is not a client error")
	}
	for _, msg := range []string{
		"search query is required",
		"at least 2 product ids are required",
		"at most 10 products can be compared",
		"id must be a positive integer",
	} {
		if !isClientError(errMsg(msg)) {
			t.Fatalf("expected client error for %q", msg)
		}
	}
	if isClientError(errMsg("connection refused")) {
		t.Fatalf("infrastructure failures are not client errors")
	}
}

type errMsg string

func (e errMsg) Error() string { return string(e) }
