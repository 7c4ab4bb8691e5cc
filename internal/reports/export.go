package reports

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WritePLCSV emits the monthly P&L as CSV, ending with a total row.
func WritePLCSV(w io.Writer, report PLReport) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Period", "Bookings", "Revenue", "Cost of Sales", "Gross Profit", "Operating Expenses", "Net Profit"}); err != nil {
		return err
	}
	for _, m := range append(report.Months, report.Total) {
		if err := writer.Write([]string{
			m.Period,
			strconv.Itoa(m.Bookings),
			formatFloat(m.Revenue),
			formatFloat(m.CostOfSales),
			formatFloat(m.GrossProfit),
			formatFloat(m.OperatingExpenses),
			formatFloat(m.NetProfit),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteCashFlowCSV emits monthly cash movement as CSV.
func WriteCashFlowCSV(w io.Writer, report CashFlowReport) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Period", "Cash In", "Cash Out", "Net", "Balance"}); err != nil {
		return err
	}
	if err := writer.Write([]string{"opening", "", "", "", formatFloat(report.OpeningBalance)}); err != nil {
		return err
	}
	for _, p := range report.Months {
		if err := writer.Write([]string{
			p.Period,
			formatFloat(p.CashIn),
			formatFloat(p.CashOut),
			formatFloat(p.Net),
			formatFloat(p.Balance),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
