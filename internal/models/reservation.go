package models

import "time"

// DefaultReserverName is stored when a reserver leaves the name empty
const DefaultReserverName = "Guest"

// Reservation claims an item so it is not gifted twice
type Reservation struct {
	ID            string    `json:"id" db:"id"`
	ItemID        string    `json:"item_id" db:"item_id"`
	ReserverName  string    `json:"reserver_name" db:"reserver_name"`
	ReserverEmail *string   `json:"reserver_email" db:"reserver_email"`
	Message       *string   `json:"message" db:"message"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
