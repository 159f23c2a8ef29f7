package models

// ItemWithReservation is an item together with its reservation, if any
type ItemWithReservation struct {
	Item
	Reservation *Reservation `json:"reservation,omitempty"`
}

// WishlistWithItems is a wishlist snapshot as shown on the owner's dashboard
type WishlistWithItems struct {
	Wishlist
	ShareURL string                `json:"share_url"`
	Items    []ItemWithReservation `json:"items"`
}

// ReservedCount returns how many items of the wishlist are reserved
func (w *WishlistWithItems) ReservedCount() int {
	n := 0
	for i := range w.Items {
		if w.Items[i].IsReserved() {
			n++
		}
	}
	return n
}
