package domain

import (
	"strconv"
	"strings"
	"time"
)

// OrderStatus is the ordinal status of an order.
type OrderStatus int

const (
	OrderStatusScheduled OrderStatus = iota
	OrderStatusFindingDriver
	OrderStatusDriverOnWay
	OrderStatusDriverArrived
	OrderStatusCarInTransit
	OrderStatusCarAtService
	OrderStatusDriverReturning
	OrderStatusCarDelivered
	OrderStatusCancelled
)

var orderStatusLabels = [...]string{
	OrderStatusScheduled:       "SCHEDULED",
	OrderStatusFindingDriver:   "FINDING_DRIVER",
	OrderStatusDriverOnWay:     "DRIVER_ON_WAY",
	OrderStatusDriverArrived:   "DRIVER_ARRIVED",
	OrderStatusCarInTransit:    "CAR_IN_TRANSIT",
	OrderStatusCarAtService:    "CAR_AT_SERVICE",
	OrderStatusDriverReturning: "DRIVER_RETURNING",
	OrderStatusCarDelivered:    "CAR_DELIVERED",
	OrderStatusCancelled:       "CANCELLED",
}

// orderTransitions lists the statuses each status may move to.
// Terminal statuses have no entry.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusScheduled:       {OrderStatusFindingDriver, OrderStatusCancelled},
	OrderStatusFindingDriver:   {OrderStatusDriverOnWay, OrderStatusCancelled},
	OrderStatusDriverOnWay:     {OrderStatusDriverArrived, OrderStatusCancelled},
	OrderStatusDriverArrived:   {OrderStatusCarInTransit, OrderStatusCancelled},
	OrderStatusCarInTransit:    {OrderStatusCarAtService, OrderStatusCancelled},
	OrderStatusCarAtService:    {OrderStatusDriverReturning, OrderStatusCancelled},
	OrderStatusDriverReturning: {OrderStatusCarDelivered, OrderStatusCancelled},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	return s >= OrderStatusScheduled && s <= OrderStatusCancelled
}

// String returns the status label.
func (s OrderStatus) String() string {
	if !s.Valid() {
		return "UNKNOWN(" + strconv.Itoa(int(s)) + ")"
	}
	return orderStatusLabels[s]
}

// Terminal reports whether no further transitions are allowed from s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCarDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether an order in status s may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseOrderStatus accepts either a label ("DRIVER_ON_WAY") or an ordinal ("2").
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		s := OrderStatus(n)
		return s, s.Valid()
	}
	label := strings.ToUpper(raw)
	for i, l := range orderStatusLabels {
		if l == label {
			return OrderStatus(i), true
		}
	}
	return 0, false
}

// Location is a pickup or drop-off point.
type Location struct {
	Address string   `json:"address"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

// VehicleInfo describes the customer's vehicle being serviced.
type VehicleInfo struct {
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         int    `json:"year,omitempty"`
	LicensePlate string `json:"licensePlate,omitempty"`
	Color        string `json:"color,omitempty"`
}

// CustomerInfo holds contact details for the person at pickup.
type CustomerInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// DriverInfo holds the assigned driver and post-trip feedback.
type DriverInfo struct {
	Name   string   `json:"name,omitempty"`
	Phone  string   `json:"phone,omitempty"`
	Rating *float64 `json:"rating,omitempty"`
	Tip    *float64 `json:"tip,omitempty"`
}

// BillingInfo records who placed the order and who pays for it.
type BillingInfo struct {
	UserID         string `json:"userId"`
	BilledToUserID string `json:"billedToUserId"`
	PaymentMethod  string `json:"paymentMethod,omitempty"`
	OwnerName      string `json:"ownerName,omitempty"`
}

// StatusEntry is one element of an order's status history.
type StatusEntry struct {
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
}

// Order is the server-of-record representation of a requested service.
type Order struct {
	ID              string        `json:"id"`
	Status          OrderStatus   `json:"status"`
	PickupLocation  Location      `json:"pickupLocation"`
	DropoffLocation Location      `json:"dropoffLocation"`
	ScheduledDate   *string       `json:"scheduledDate,omitempty"` // YYYY-MM-DD
	ScheduledTime   *string       `json:"scheduledTime,omitempty"` // HH:MM
	VehicleInfo     *VehicleInfo  `json:"vehicleInfo,omitempty"`
	CustomerInfo    *CustomerInfo `json:"customerInfo,omitempty"`
	DriverInfo      *DriverInfo   `json:"driverInfo,omitempty"`
	BillingInfo     BillingInfo   `json:"billingInfo"`
	StatusHistory   []StatusEntry `json:"statusHistory"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// IsScheduled reports whether both a date and a time were given.
func (o *Order) IsScheduled() bool {
	return o.ScheduledDate != nil && *o.ScheduledDate != "" &&
		o.ScheduledTime != nil && *o.ScheduledTime != ""
}

// HistoryConsistent checks the status history invariants: non-empty, last
// entry matches Status, timestamps non-decreasing.
func (o *Order) HistoryConsistent() bool {
	if len(o.StatusHistory) == 0 {
		return false
	}
	if o.StatusHistory[len(o.StatusHistory)-1].Status != o.Status {
		return false
	}
	for i := 1; i < len(o.StatusHistory); i++ {
		if o.StatusHistory[i].Timestamp.Before(o.StatusHistory[i-1].Timestamp) {
			return false
		}
	}
	return true
}

// OrderPatch is a merge-patch over the mutable, non-status fields of an order.
// Nil fields are left unchanged.
type OrderPatch struct {
	PickupLocation  *Location     `json:"pickupLocation,omitempty"`
	DropoffLocation *Location     `json:"dropoffLocation,omitempty"`
	ScheduledDate   *string       `json:"scheduledDate,omitempty"`
	ScheduledTime   *string       `json:"scheduledTime,omitempty"`
	VehicleInfo     *VehicleInfo  `json:"vehicleInfo,omitempty"`
	CustomerInfo    *CustomerInfo `json:"customerInfo,omitempty"`
	DriverInfo      *DriverInfo   `json:"driverInfo,omitempty"`
	PaymentMethod   *string       `json:"paymentMethod,omitempty"`
	OwnerName       *string       `json:"ownerName,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p OrderPatch) Empty() bool {
	return p.PickupLocation == nil && p.DropoffLocation == nil &&
		p.ScheduledDate == nil && p.ScheduledTime == nil &&
		p.VehicleInfo == nil && p.CustomerInfo == nil && p.DriverInfo == nil &&
		p.PaymentMethod == nil && p.OwnerName == nil
}

// Apply merges p into o. DriverInfo is merged field by field so a rating can
// be added without resending the driver's contact details.
func (p OrderPatch) Apply(o *Order) {
	if p.PickupLocation != nil {
		o.PickupLocation = *p.PickupLocation
	}
	if p.DropoffLocation != nil {
		o.DropoffLocation = *p.DropoffLocation
	}
	if p.ScheduledDate != nil {
		o.ScheduledDate = p.ScheduledDate
	}
	if p.ScheduledTime != nil {
		o.ScheduledTime = p.ScheduledTime
	}
	if p.VehicleInfo != nil {
		v := *p.VehicleInfo
		o.VehicleInfo = &v
	}
	if p.CustomerInfo != nil {
		c := *p.CustomerInfo
		o.CustomerInfo = &c
	}
	if p.DriverInfo != nil {
		merged := DriverInfo{}
		if o.DriverInfo != nil {
			merged = *o.DriverInfo
		}
		if p.DriverInfo.Name != "" {
			merged.Name = p.DriverInfo.Name
		}
		if p.DriverInfo.Phone != "" {
			merged.Phone = p.DriverInfo.Phone
		}
		if p.DriverInfo.Rating != nil {
			merged.Rating = p.DriverInfo.Rating
		}
		if p.DriverInfo.Tip != nil {
			merged.Tip = p.DriverInfo.Tip
		}
		o.DriverInfo = &merged
	}
	if p.PaymentMethod != nil {
		o.BillingInfo.PaymentMethod = *p.PaymentMethod
	}
	if p.OwnerName != nil {
		o.BillingInfo.OwnerName = *p.OwnerName
	}
}
