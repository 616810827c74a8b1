package ledger

import (
	"encoding/csv"
	"io"
)

// The header the accounting side expects; column order matches the
// contracts table on screen.
var csvHeader = []string{
	"Номер договора", "Контрагент", "Сумма", "Дата начала", "Дата окончания", "Статус",
}

// ExportContractsCSV writes the contract register as CSV, one row per
// contract. Fields with embedded commas or quotes are quoted per RFC 4180.
// A missing end date exports as an empty field.
func ExportContractsCSV(w io.Writer, contracts []Contract) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, c := range contracts {
		endDate := ""
		if !c.EndDate.IsZero() {
			endDate = c.EndDate.Format("2006-01-02")
		}
		row := []string{
			c.ContractNumber,
			c.Counterparty,
			c.TotalAmount.String(),
			c.StartDate.Format("2006-01-02"),
			endDate,
			string(c.Status),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
