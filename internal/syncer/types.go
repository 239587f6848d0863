package syncer

// Item is one row of the source-of-truth feed: a SKU and the stock level
// it should have on the remote platform. Immutable, consumed once per
// sync attempt.
type Item struct {
	Name     string `json:"Name"`
	SKU      string `json:"SKU"`
	Quantity int    `json:"Available Primary"`
}

// Outcome is the result of syncing a single item.
type Outcome struct {
	SKU       string `json:"sku"`
	Succeeded bool   `json:"succeeded"`
	Detail    string `json:"detail,omitempty"`
}

// BatchResult summarizes one batch call.
// Invariant: Total == Successful + Failed == len(Outcomes), and
// Outcomes preserves the input item order.
type BatchResult struct {
	Total      int       `json:"total"`
	Successful int       `json:"successful"`
	Failed     int       `json:"failed"`
	Outcomes   []Outcome `json:"outcomes"`
}

func (r *BatchResult) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	r.Total++
	if o.Succeeded {
		r.Successful++
	} else {
		r.Failed++
	}
}
