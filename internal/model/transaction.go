// Package model defines the core data types shared across the application.
package model

import (
	"encoding/json"
	"time"
)

// Classification identifies the chart-of-accounts entry a transaction is
// assigned to. Type distinguishes categories from transfers, splits and the
// uncategorized pseudo-entry; ID is only meaningful within a type.
type Classification struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Classification types reported by the upstream ledger.
const (
	CoaTypeCategory      = "CATEGORY"
	CoaTypeUncategorized = "UNCATEGORIZED"
	CoaTypeTransfer      = "TRANSFER"
)

// IsUncategorized reports whether the classification denotes the
// uncategorized pseudo-entry. A nil classification counts as uncategorized,
// as does the upstream convention of id "0".
func (c *Classification) IsUncategorized() bool {
	if c == nil {
		return true
	}
	return c.Type == CoaTypeUncategorized || c.ID == "0"
}

// Transaction is a single ledger entry mirrored from the upstream service.
// ID is the only required field; everything else may be absent depending on
// what upstream has populated. Payload retains the verbatim upstream record
// so write-back can replay fields the normalized columns do not model.
type Transaction struct {
	PostedOn      time.Time
	ModifiedAt    time.Time
	Coa           *Classification
	ID            string
	AccountID     string
	Payee         string
	RenamedPayee  string
	InferredPayee string
	Notes         string
	State         string
	Payload       json.RawMessage
	Amount        float64
	Deleted       bool
}

// Merchant returns the best available merchant name for the transaction:
// the user-assigned rename wins, then the original payee, then the payee
// inferred upstream.
func (t *Transaction) Merchant() string {
	switch {
	case t.RenamedPayee != "":
		return t.RenamedPayee
	case t.Payee != "":
		return t.Payee
	default:
		return t.InferredPayee
	}
}

// MerchantCount is one row of a merchant frequency aggregation.
type MerchantCount struct {
	Merchant string
	Count    int
}

// CategorySuggestion is one row of a historical category-usage aggregation
// for a merchant. Name is empty when the classification could not be
// resolved against the cached categories.
type CategorySuggestion struct {
	CoaType string
	CoaID   string
	Name    string
	Count   int
}
