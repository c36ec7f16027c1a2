package hart

// reserve.go implements the A-extension reservation set, per spec.md
// §4.5: an 8-byte granule, set by LR, invalidated by any overlapping
// store, a trap, or MRET/SRET.

const reservationGranule = 8

func reservationLine(addr uint64) uint64 {
	return addr &^ (reservationGranule - 1)
}

// LoadReserved records addr's granule as reserved. It returns nothing;
// the caller performs the load itself.
func (h *Hart) LoadReserved(addr uint64) {
	h.ReservationAddr = reservationLine(addr)
}

// StoreConditional reports whether addr still matches the held
// reservation; the reservation is cleared either way, per spec.md §4.5.
func (h *Hart) StoreConditional(addr uint64) bool {
	ok := h.ReservationAddr == reservationLine(addr)
	h.ReservationAddr = reservationNone

	return ok
}

// invalidateReservation clears the reservation if store overlaps its
// line; called on every plain store, ahead of trap/MRET/SRET which
// unconditionally clear it in trap.go.
func (h *Hart) invalidateReservation(addr uint64, width int) {
	if h.ReservationAddr == reservationNone {
		return
	}

	lo := reservationLine(addr)
	hi := reservationLine(addr + uint64(width/8) - 1)

	if h.ReservationAddr == lo || h.ReservationAddr == hi {
		h.ReservationAddr = reservationNone
	}
}
