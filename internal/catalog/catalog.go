package catalog

// Entry is one product in a target's remote catalog.
// Identity is RemoteID; Code/Barcode uniqueness is assumed by the remote
// system but not enforced here (resolution is first-match on purpose).
type Entry struct {
	RemoteID string `json:"_id"`
	Code     string `json:"code"`
	Barcode  string `json:"barcode"`
	Name     string `json:"name"`
}

// Resolve returns the first entry in catalog order whose code or barcode
// equals sku, exact case-sensitive match. The bool reports whether a
// match was found; a miss is a valid terminal state, not an error.
//
// First-match rather than unique-match: duplicate codes in the remote
// data must surface as-is instead of being silently disambiguated.
func Resolve(entries []Entry, sku string) (Entry, bool) {
	for _, e := range entries {
		if e.Code == sku || e.Barcode == sku {
			return e, true
		}
	}
	return Entry{}, false
}
