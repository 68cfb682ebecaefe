package acquisition

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/tariffticker/core/model"
)

// Document is a standard unit rate response. Pointer fields tell a null or
// absent field apart from a zero value.
type Document struct {
	Count   *int      `json:"count"`
	Next    *string   `json:"next"`
	Results *[]Result `json:"results"`
}

// Result is one priced interval.
type Result struct {
	ValueExcVAT   *decimal.Decimal `json:"value_exc_vat"`
	ValueIncVAT   *decimal.Decimal `json:"value_inc_vat"`
	ValidFrom     *string          `json:"valid_from"`
	ValidTo       *string          `json:"valid_to"`
	PaymentMethod *string          `json:"payment_method"`
}

// DecodeDocument parses a response body.
func DecodeDocument(body []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}

func (d *Document) results() ([]Result, error) {
	if d == nil || d.Results == nil {
		return nil, fmt.Errorf("%w: results", ErrMissingField)
	}
	return *d.Results, nil
}

// value returns the configured price field.
func (r Result) value(excludeVAT bool) (model.Rate, bool) {
	v := r.ValueIncVAT
	if excludeVAT {
		v = r.ValueExcVAT
	}
	if v == nil {
		return 0, false
	}
	return model.RateFromDecimal(*v), true
}

func (r Result) validFrom() (time.Time, bool) {
	if r.ValidFrom == nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, *r.ValidFrom)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
