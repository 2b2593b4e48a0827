package requests

// Line counter reconciliation. Both mutators validate against the line's
// own invariants and touch nothing else; callers run them inside a larger
// transaction and persist the line themselves.

// ApproveQuantity sets the approved counter of a line. The quantity must be
// non-negative and must not exceed what was requested.
func ApproveQuantity(l *Line, qty int64) error {
	if qty < 0 {
		return validationErr("approved", CodeNegative,
			"approved quantity must not be negative, got %d", qty)
	}
	if qty > l.Requested {
		return validationErr("approved", CodeExceedsRequested,
			"approved quantity %d exceeds requested %d", qty, l.Requested)
	}
	if qty < l.Dispatched {
		return validationErr("approved", CodeExceedsApproved,
			"approved quantity %d is below already dispatched %d", qty, l.Dispatched)
	}
	l.Approved = qty
	return nil
}

// AddDispatched increases the dispatched counter by qty. The increment must
// be positive and the resulting total must not exceed the approved quantity.
func AddDispatched(l *Line, qty int64) error {
	if qty <= 0 {
		return validationErr("dispatched", CodeNegative,
			"dispatch quantity must be positive, got %d", qty)
	}
	if l.Dispatched+qty > l.Approved {
		return validationErr("dispatched", CodeExceedsApproved,
			"dispatching %d would exceed approved %d (already dispatched %d)",
			qty, l.Approved, l.Dispatched)
	}
	l.Dispatched += qty
	return nil
}
