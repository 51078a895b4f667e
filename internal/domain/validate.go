package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Business rule violations reported by Validate.
var (
	ErrZeroAmount       = errors.New("amount must be non-zero")
	ErrEmptyDescription = errors.New("description must not be empty")
	ErrSignMismatch     = errors.New("amount sign does not match transaction type for source")
)

// Validate applies the persistence-boundary rules: a non-zero amount, a
// non-empty description and a sign consistent with the source convention.
//
// Credit sources record spending as positive amounts; debit and savings
// sources record spending as negative amounts.
func (t Transaction) Validate() error {
	if t.Amount.IsZero() {
		return ErrZeroAmount
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if !t.TransactionType.Valid() {
		return fmt.Errorf("invalid transaction type %q", t.TransactionType)
	}
	if !t.Source.Valid() {
		return fmt.Errorf("invalid source %q", t.Source)
	}

	want := ExpectedType(t.Source, t.Amount.IsPositive())
	if t.TransactionType != want {
		return fmt.Errorf("%w: %s amount %s on %s source must be %s",
			ErrSignMismatch, t.TransactionType, t.Amount.String(), t.Source, want)
	}
	return nil
}

// ExpectedType returns the transaction type implied by the amount sign for
// a source.
func ExpectedType(source Source, positive bool) TransactionType {
	if source == SourceCredit {
		if positive {
			return TransactionTypeExpense
		}
		return TransactionTypeIncome
	}
	if positive {
		return TransactionTypeIncome
	}
	return TransactionTypeExpense
}

// ValidateCandidate decodes and validates a candidate mapping in one step.
func ValidateCandidate(c CandidateTransaction) (Transaction, error) {
	tx, err := FromCandidate(c)
	if err != nil {
		return Transaction{}, err
	}
	if err := tx.Validate(); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}
