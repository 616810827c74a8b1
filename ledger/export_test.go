package ledger_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShuVe1/site-agreement/ledger"
)

func TestExportContractsCSV(t *testing.T) {
	contracts := []ledger.Contract{
		{
			ContractNumber: "Д-2024/01",
			Counterparty:   "ООО Ромашка",
			TotalAmount:    decimal.NewFromInt(1200),
			StartDate:      ledger.NewDate(2024, time.January, 15),
			EndDate:        ledger.NewDate(2025, time.January, 15),
			Status:         ledger.ContractActive,
		},
		{
			ContractNumber: "Д-2024/02",
			Counterparty:   "ИП Иванов",
			TotalAmount:    decimal.RequireFromString("500.50"),
			StartDate:      ledger.NewDate(2024, time.March, 1),
			Status:         ledger.ContractSuspended,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, ledger.ExportContractsCSV(&buf, contracts))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Номер договора,Контрагент,Сумма,Дата начала,Дата окончания,Статус", lines[0])
	assert.Equal(t, "Д-2024/01,ООО Ромашка,1200,2024-01-15,2025-01-15,active", lines[1])
	// Missing end date exports as an empty field.
	assert.Equal(t, "Д-2024/02,ИП Иванов,500.5,2024-03-01,,suspended", lines[2])
}

func TestExportContractsCSV_EscapesEmbeddedCommas(t *testing.T) {
	contracts := []ledger.Contract{
		{
			ContractNumber: "C-1",
			Counterparty:   `ООО "Ромашка, и партнеры"`,
			TotalAmount:    decimal.NewFromInt(100),
			StartDate:      ledger.NewDate(2024, time.January, 1),
			Status:         ledger.ContractActive,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, ledger.ExportContractsCSV(&buf, contracts))

	// The field must come out quoted with inner quotes doubled, so the
	// row still parses as six columns.
	assert.Contains(t, buf.String(), `"ООО ""Ромашка, и партнеры"""`)
}

func TestExportContractsCSV_EmptyRegister(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ledger.ExportContractsCSV(&buf, nil))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 1) // header only
}
