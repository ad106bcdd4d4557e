package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledgermirror/ledgerd/internal/model"
	"github.com/ledgermirror/ledgerd/internal/service"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidTag         = errors.New("invalid tag")
	ErrInvalidDomain      = errors.New("invalid sync domain")
	ErrInvalidMatchMode   = errors.New("invalid merchant match mode")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransactions validates a slice of transactions for upsert. Only
// the primary identifier is required; every other field may be absent.
func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	for i, txn := range transactions {
		if txn.ID == "" {
			return fmt.Errorf("%w: missing ID at index %d", ErrInvalidTransaction, i)
		}
	}
	return nil
}

// validateCategories validates a slice of categories for upsert.
func validateCategories(categories []model.Category) error {
	if categories == nil {
		return fmt.Errorf("%w: categories", ErrNilParameter)
	}
	for i, cat := range categories {
		if cat.ID == "" {
			return fmt.Errorf("%w: missing ID at index %d", ErrInvalidCategory, i)
		}
	}
	return nil
}

// validateTags validates a slice of tags for upsert.
func validateTags(tags []model.Tag) error {
	if tags == nil {
		return fmt.Errorf("%w: tags", ErrNilParameter)
	}
	for i, tag := range tags {
		if tag.ID == "" {
			return fmt.Errorf("%w: missing ID at index %d", ErrInvalidTag, i)
		}
	}
	return nil
}

// validateDomain ensures a sync domain is one the schema tracks.
func validateDomain(domain model.SyncDomain) error {
	switch domain {
	case model.DomainTransactions, model.DomainCategories, model.DomainTags:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidDomain, domain)
	}
}

// validateMatchMode ensures a merchant match mode is supported.
func validateMatchMode(mode service.MerchantMatchMode) error {
	switch mode {
	case service.MatchExact, service.MatchContains:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidMatchMode, mode)
	}
}

// clampLimit forces limit into [1, maximum], substituting fallback when the
// caller passed zero or a negative value.
func clampLimit(limit, fallback, maximum int) int {
	if limit <= 0 {
		limit = fallback
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maximum {
		limit = maximum
	}
	return limit
}
