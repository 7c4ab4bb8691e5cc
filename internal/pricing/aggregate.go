package pricing

// LineItems groups every service line of a booking.
type LineItems struct {
	Hotels       []HotelLine       `json:"hotels"`
	Tours        []TourLine        `json:"tours"`
	Transfers    []TransferLine    `json:"transfers"`
	Flights      []FlightLine      `json:"flights"`
	EntranceFees []EntranceFeeLine `json:"entrance_fees"`
}

// Len counts lines across all categories.
func (li LineItems) Len() int {
	return len(li.Hotels) + len(li.Tours) + len(li.Transfers) + len(li.Flights) + len(li.EntranceFees)
}

// Totals are the booking-level sums stored on the booking record.
type Totals struct {
	TotalSell   float64 `json:"total_sell_price"`
	TotalCost   float64 `json:"total_cost_price"`
	GrossProfit float64 `json:"gross_profit"`
}

// IsZero reports whether no money has been recorded.
func (t Totals) IsZero() bool {
	return t.TotalSell == 0 && t.TotalCost == 0
}

func (t *Totals) add(a Amounts) {
	t.TotalSell += a.Sell
	t.TotalCost += a.Cost
}

// Aggregate sums sell and cost over every line and derives gross profit.
func Aggregate(items LineItems) Totals {
	var t Totals
	for _, l := range items.Hotels {
		t.add(l.Compute())
	}
	for _, l := range items.Tours {
		t.add(l.Compute())
	}
	for _, l := range items.Transfers {
		t.add(l.Compute())
	}
	for _, l := range items.Flights {
		t.add(l.Compute())
	}
	for _, l := range items.EntranceFees {
		t.add(l.Compute())
	}
	t.GrossProfit = t.TotalSell - t.TotalCost
	return t
}

// AggregateEdit is Aggregate for an edit session. While no line has been
// loaded the persisted totals are returned so unrelated header edits do not
// zero them out.
func AggregateEdit(items LineItems, persisted Totals) Totals {
	if items.Len() == 0 && !persisted.IsZero() {
		persisted.GrossProfit = persisted.TotalSell - persisted.TotalCost
		return persisted
	}
	return Aggregate(items)
}
