package shared

// Booking permissions.
const (
	PermBookingsView = "bookings.view"
	PermBookingsEdit = "bookings.edit"
)

// Rate sheet permissions.
const (
	PermRatesView = "rates.view"
	PermRatesEdit = "rates.edit"
)

// Finance permissions.
const (
	PermPaymentsView = "finance.payments.view"
	PermPaymentsEdit = "finance.payments.edit"
	PermExpensesView = "finance.expenses.view"
	PermExpensesEdit = "finance.expenses.edit"
	PermReportsView  = "finance.reports.view"
	PermJobsRun      = "jobs.run"
)

// AllScopes lists every permission known to the back office.
func AllScopes() []string {
	return []string{
		PermBookingsView,
		PermBookingsEdit,
		PermRatesView,
		PermRatesEdit,
		PermPaymentsView,
		PermPaymentsEdit,
		PermExpensesView,
		PermExpensesEdit,
		PermReportsView,
		PermJobsRun,
	}
}
