package domain

import "time"

// Status is the provider's rental session status. The wire values are
// fixed by the provider API and must not be reordered.
type Status int

const (
	StatusWaiting Status = 0
	StatusSuccess Status = 1
	StatusExpired Status = 2
)

// Terminal reports whether no further automatic transition occurs.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusExpired
}

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusSuccess:
		return "success"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// RentalRecord is the local representation of one leased phone number
// and its OTP-delivery state.
type RentalRecord struct {
	RequestID   string    `json:"request_id"`
	PhoneNumber string    `json:"phone_number"`
	ServiceID   string    `json:"service_id"`
	ServiceName string    `json:"service_name"`
	Price       int64     `json:"price"`
	Status      Status    `json:"status"`
	Code        string    `json:"code"`
	SMSContent  string    `json:"sms_content"`
	IsSound     bool      `json:"is_sound"`
	CreatedTime time.Time `json:"created_time"`
}

// DisplayPhone returns the user-facing form with the leading zero the
// provider strips from its digits-only numbers.
func (r RentalRecord) DisplayPhone() string {
	return "0" + r.PhoneNumber
}

// SessionStatus is the result of one status fetch for a rental session.
type SessionStatus struct {
	Status     Status
	Code       string
	SMSContent string
	IsSound    bool
}

// RentResult is what the provider returns for a successful rent call.
type RentResult struct {
	RequestID   string
	PhoneNumber string
}

// ServiceCatalogEntry is one rentable service for a country.
type ServiceCatalogEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// BalanceSnapshot is a cached provider balance with its fetch time.
// Snapshots older than BalanceTTL are discarded on read.
type BalanceSnapshot struct {
	Balance   float64   `json:"balance"`
	Timestamp time.Time `json:"timestamp"`
}

// BalanceTTL is how long a cached balance is trusted.
const BalanceTTL = 24 * time.Hour

// HistoryEntry is one row of the provider's rental history.
type HistoryEntry struct {
	ID            string    `json:"id"`
	ServiceName   string    `json:"service_name"`
	Phone         string    `json:"phone"`
	PhoneOriginal string    `json:"phone_original"`
	Code          string    `json:"code"`
	Price         int64     `json:"price"`
	CreatedTime   time.Time `json:"created_time"`
	Status        Status    `json:"status"`
	SMSContent    string    `json:"sms_content"`
	IsSound       bool      `json:"is_sound"`
}

// HistoryFilter narrows a history lookup. Zero values mean "no filter";
// the provider expects -1 for unset service and status.
type HistoryFilter struct {
	ServiceID string
	Status    *Status
	FromDate  string
	ToDate    string
	Limit     int
}
