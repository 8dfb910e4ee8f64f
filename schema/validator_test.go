package schema

import (
	"testing"
)

func mustValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("build validator: %v", err)
	}
	return v
}

func TestValidListingPasses(t *testing.T) {
	t.Parallel()
	v := mustValidator(t)

	payload := []byte(`{
		"source": "amazon",
		"url": "https://www.amazon.in/dp/B0TEST",
		"title": "Acme Wireless Earbuds",
		"price": "₹1,999",
		"original_price": "₹2,499",
		"currency": "INR",
		"rating": "4.2 out of 5",
		"review_count": "1,234",
		"availability": "In Stock"
	}`)
	if err := v.ValidateBytes(payload); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
}

func TestMinimalListingPasses(t *testing.T) {
	t.Parallel()
	v := mustValidator(t)

	payload := []byte(`{"source":"flipkart","url":"https://www.flipkart.com/p/x","title":"Case","price":"299"}`)
	if err := v.ValidateBytes(payload); err != nil {
		t.Fatalf("expected minimal payload to pass, got %v", err)
	}
}

func TestMissingRequiredFieldFails(t *testing.T) {
	t.Parallel()
	v := mustValidator(t)

	payload := []byte(`{"source":"amazon","url":"https://www.amazon.in/dp/B0TEST","price":"₹1,999"}`)
	if err := v.ValidateBytes(payload); err == nil {
		t.Fatalf("expected missing title to fail validation")
	}
}

func TestNonHTTPURLFails(t *testing.T) {
	t.Parallel()
	v := mustValidator(t)

	payload := []byte(`{"source":"amazon","url":"ftp://files.example/x","title":"Item","price":"10"}`)
	if err := v.ValidateBytes(payload); err == nil {
		t.Fatalf("expected non-http url to fail validation")
	}
}

func TestUnknownFieldFails(t *testing.T) {
	t.Parallel()
	v := mustValidator(t)

	payload := []byte(`{"source":"amazon","url":"https://a.example/x","title":"Item","price":"10","internal_id":7}`)
	if err := v.ValidateBytes(payload); err == nil {
		t.Fatalf("expected unknown field to fail validation")
	}
}

func TestMalformedJSONFails(t *testing.T) {
	t.Parallel()
	v := mustValidator(t)

	if err := v.ValidateBytes([]byte(`{"source":`)); err == nil {
		t.Fatalf("expected malformed JSON to fail")
	}
}

func TestBadCurrencyCodeFails(t *testing.T) {
	t.Parallel()
	v := mustValidator(t)

	payload := []byte(`{"source":"amazon","url":"https://a.example/x","title":"Item","price":"10","currency":"rupees"}`)
	if err := v.ValidateBytes(payload); err == nil {
		t.Fatalf("expected invalid currency code to fail validation")
	}
}
