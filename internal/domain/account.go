package domain

import "strings"

// AccountType is the statement classification emitted by the cleaning stage.
type AccountType string

const (
	AccountTypeCreditCard    AccountType = "CREDIT_CARD"
	AccountTypeDebitChecking AccountType = "DEBIT_CHECKING"
	AccountTypeSavings       AccountType = "SAVINGS"
)

// AccountTypeKey prefixes the account type line of cleaned text.
const AccountTypeKey = "ACCOUNT_TYPE"

// Transaction block delimiters produced by the structuring stage.
const (
	BlockStart = "TRANSACTION_START"
	BlockEnd   = "TRANSACTION_END"
)

// Source maps an account type to the canonical transaction source.
func (a AccountType) Source() (Source, bool) {
	switch a {
	case AccountTypeCreditCard:
		return SourceCredit, true
	case AccountTypeDebitChecking:
		return SourceDebit, true
	case AccountTypeSavings:
		return SourceSavings, true
	}
	return "", false
}

// Line renders the account type line as the cleaning stage writes it.
func (a AccountType) Line() string {
	return AccountTypeKey + " = " + string(a)
}

// ParseAccountType accepts the canonical names case-insensitively.
func ParseAccountType(s string) (AccountType, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.Trim(s, "[]\"'` ")
	s = strings.ReplaceAll(s, " ", "_")
	switch AccountType(s) {
	case AccountTypeCreditCard, AccountTypeDebitChecking, AccountTypeSavings:
		return AccountType(s), true
	}
	return "", false
}

// DetectAccountType scans text for an "ACCOUNT_TYPE = X" line and returns
// the account type with the exact line it was found on.
// Both "=" and ":" separators are accepted.
func DetectAccountType(text string) (AccountType, string, bool) {
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		upper := strings.ToUpper(line)
		if !strings.HasPrefix(upper, AccountTypeKey) {
			continue
		}
		rest := strings.TrimSpace(line[len(AccountTypeKey):])
		rest = strings.TrimLeft(rest, "=:")
		if at, ok := ParseAccountType(rest); ok {
			return at, line, true
		}
	}
	return "", "", false
}
