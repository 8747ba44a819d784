// Natural keys identify a record by its content rather than its id. The
// importer and the row-file id recovery both match on them.

package core

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CleanText trims s and folds it to NFC. Hangul exported from some systems
// arrives decomposed and would otherwise never match the same merchant typed
// in a form.
func CleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// ExpenseKey identifies an expense by its content, for id recovery and
// duplicate detection.
type ExpenseKey struct {
	Merchant     string
	Amount       string
	ApprovalDate string
}

// PayeeKey identifies a payee by its directory fields.
type PayeeKey struct {
	Name          string
	BankName      string
	AccountNumber string
	OwnerName     string
}

func KeyOfExpense(e Expense) ExpenseKey {
	return ExpenseKey{
		Merchant:     CleanText(e.Merchant),
		Amount:       e.Amount.Key(),
		ApprovalDate: e.ApprovalDate,
	}
}

func KeyOfPayee(p Payee) PayeeKey {
	return PayeeKey{
		Name:          CleanText(p.Name),
		BankName:      CleanText(p.BankName),
		AccountNumber: strings.TrimSpace(p.AccountNumber),
		OwnerName:     CleanText(p.OwnerName),
	}
}
