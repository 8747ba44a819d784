package sheets

import (
	"strconv"

	"jichul/internal/core"
	"jichul/internal/storage"
)

// ExpenseRows renders expenses for a sheet: the row file's header, then one
// row per expense ordered by approval date. Amounts are plain decimals and
// dates ISO so the spreadsheet parses both.
func ExpenseRows(expenses []core.Expense) [][]string {
	sorted := make([]core.Expense, len(expenses))
	copy(sorted, expenses)
	core.SortByApprovalDate(sorted)

	rows := make([][]string, 0, len(sorted)+1)
	rows = append(rows, append([]string{"ID"}, storage.ExpenseHeader...))
	for _, e := range sorted {
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.Merchant,
			e.Amount.String(),
			e.ApprovalDate,
			e.PaymentMethod,
			string(e.PaymentCycle),
		})
	}
	return rows
}

// PayeeRows renders the payee directory sorted by name.
func PayeeRows(payees []core.Payee) [][]string {
	sorted := make([]core.Payee, len(payees))
	copy(sorted, payees)
	core.SortPayeesByName(sorted)

	rows := make([][]string, 0, len(sorted)+1)
	rows = append(rows, storage.PayeeHeader)
	for _, p := range sorted {
		amount := ""
		if !p.Amount.IsZero() {
			amount = p.Amount.String()
		}
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			p.BankName,
			p.AccountNumber,
			p.OwnerName,
			string(p.PaymentCycle),
			amount,
		})
	}
	return rows
}
