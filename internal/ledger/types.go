package ledger

import "time"

// ServiceType classifies a booking by how the car moves.
type ServiceType string

const (
	ServiceRoundTrip ServiceType = "round_trip"
	ServiceOneWay    ServiceType = "one_way"
	ServiceDelivery  ServiceType = "delivery"
)

// PlaceholderCost is recorded for every booking until pricing is known.
const PlaceholderCost = 45.00

// StatusPending is the status of a freshly saved entry.
const StatusPending = "pending"

// Transaction is one entry of a client's booking history.
type Transaction struct {
	ID          string      `json:"id"`
	OrderID     string      `json:"orderId,omitempty"`
	OrderNumber string      `json:"orderNumber"`
	Timestamp   time.Time   `json:"timestamp"`
	Status      string      `json:"status"`
	VehicleID   string      `json:"vehicleId,omitempty"`
	Vehicle     string      `json:"vehicle"`
	Destination string      `json:"destination"`
	PickupTime  string      `json:"pickupTime"`
	ServiceType ServiceType `json:"serviceType"`
	Cost        float64     `json:"cost"`
	Rating      *float64    `json:"rating,omitempty"`
	Tip         *float64    `json:"tip,omitempty"`
	Notes       string      `json:"notes,omitempty"`
}

// SessionFlags are the transient booking-flow flags that decide the service type.
type SessionFlags struct {
	RoundTrip bool `json:"roundTrip"`
	OneWay    bool `json:"oneWay"`
}

// ServiceType infers the service type from the flags. Round trip wins over
// one way; neither means a plain delivery.
func (f SessionFlags) ServiceType() ServiceType {
	switch {
	case f.RoundTrip:
		return ServiceRoundTrip
	case f.OneWay:
		return ServiceOneWay
	default:
		return ServiceDelivery
	}
}

// BookingData is what the booking flow hands the ledger when an order is placed.
type BookingData struct {
	OrderID     string       `json:"orderId,omitempty"`
	VehicleID   string       `json:"vehicleId,omitempty"`
	Vehicle     string       `json:"vehicle"`
	Destination string       `json:"destination"`
	PickupTime  string       `json:"pickupTime"`
	Notes       string       `json:"notes,omitempty"`
	Session     SessionFlags `json:"session"`
}

// TransactionPatch is a merge-patch over an entry. Nil fields are left unchanged.
type TransactionPatch struct {
	Status      *string  `json:"status,omitempty"`
	Vehicle     *string  `json:"vehicle,omitempty"`
	Destination *string  `json:"destination,omitempty"`
	PickupTime  *string  `json:"pickupTime,omitempty"`
	Cost        *float64 `json:"cost,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
	Tip         *float64 `json:"tip,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
}

func (p TransactionPatch) apply(t *Transaction) {
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Vehicle != nil {
		t.Vehicle = *p.Vehicle
	}
	if p.Destination != nil {
		t.Destination = *p.Destination
	}
	if p.PickupTime != nil {
		t.PickupTime = *p.PickupTime
	}
	if p.Cost != nil {
		t.Cost = *p.Cost
	}
	if p.Rating != nil {
		t.Rating = p.Rating
	}
	if p.Tip != nil {
		t.Tip = p.Tip
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
}

// Vehicle is one entry of a client's saved vehicles list.
type Vehicle struct {
	ID           string `json:"id"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         int    `json:"year,omitempty"`
	LicensePlate string `json:"licensePlate,omitempty"`
	Color        string `json:"color,omitempty"`
}
