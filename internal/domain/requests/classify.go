package requests

// DispatchOutcome is the aggregate fulfillment state derived from a
// request's lines after a delivery.
type DispatchOutcome int

const (
	// DispatchUnchanged: nothing has been dispatched yet (or no line of the
	// request's kind exists); the request keeps its current state.
	DispatchUnchanged DispatchOutcome = iota
	// DispatchPartial: something went out but at least one line still has a
	// pending quantity.
	DispatchPartial
	// DispatchFull: every line is fully dispatched.
	DispatchFull
)

// ClassifyDispatch recomputes the aggregate state from scratch over all
// non-retired lines whose item kind matches the request's kind. Recomputing
// on every call keeps the result consistent no matter how many partial
// deliveries came before.
func ClassifyDispatch(kind Kind, lines []Line) DispatchOutcome {
	var scanned, dispatched, pending bool
	for _, l := range lines {
		if l.Retired || l.Item.Kind != kind {
			continue
		}
		scanned = true
		if l.Dispatched > 0 {
			dispatched = true
		}
		if l.Pending() > 0 {
			pending = true
		}
	}
	switch {
	case !scanned:
		return DispatchUnchanged
	case !pending:
		return DispatchFull
	case dispatched:
		return DispatchPartial
	default:
		return DispatchUnchanged
	}
}
