package model

import (
	"errors"
	"strings"
	"time"
)

// ErrSlotTaken is returned by storage when an insert collides with another active
// appointment of the same provider (the database exclusion constraint fired).
var ErrSlotTaken = errors.New("slot already taken")

type ProviderKind string

const (
	ProviderEmployee ProviderKind = "employee"
	ProviderDoctor   ProviderKind = "doctor"
)

// ProviderRef identifies the employee or doctor an appointment is booked with.
// The zero value means "no provider".
type ProviderRef struct {
	Kind ProviderKind
	ID   string
}

func (p ProviderRef) IsZero() bool {
	return p.ID == ""
}

func EmployeeRef(id string) ProviderRef { return ProviderRef{Kind: ProviderEmployee, ID: id} }
func DoctorRef(id string) ProviderRef   { return ProviderRef{Kind: ProviderDoctor, ID: id} }

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

var statuses = map[string]Status{
	"pending":     StatusPending,
	"confirmed":   StatusConfirmed,
	"waiting":     StatusWaiting,
	"in_progress": StatusInProgress,
	"in-progress": StatusInProgress,
	"completed":   StatusCompleted,
	"cancelled":   StatusCancelled,
	"no_show":     StatusNoShow,
	"no-show":     StatusNoShow,
}

func ParseStatus(s string) (Status, bool) {
	st, ok := statuses[strings.ToLower(strings.TrimSpace(s))]
	return st, ok
}

// BlocksProvider reports whether an appointment in this status occupies its provider's time
// for conflict detection.
func (s Status) BlocksProvider() bool {
	return s != StatusCancelled && s != StatusNoShow
}

type Appointment struct {
	ID              string
	BusinessID      string
	EmployeeID      string
	DoctorID        string
	ClientName      string
	ServiceName     string
	Date            time.Time
	StartMinute     int
	DurationMinutes int
	Status          Status
	GroupID         string
	Notes           string
	CancelledAt     *time.Time
	CancelReason    string
	CreatedAt       time.Time
}

func (a Appointment) EndMinute() int {
	return a.StartMinute + a.DurationMinutes
}

// Provider returns the employee or doctor the appointment is booked with.
func (a Appointment) Provider() (ProviderRef, bool) {
	switch {
	case a.EmployeeID != "":
		return EmployeeRef(a.EmployeeID), true
	case a.DoctorID != "":
		return DoctorRef(a.DoctorID), true
	default:
		return ProviderRef{}, false
	}
}

// SetProvider assigns exactly one provider column.
func (a *Appointment) SetProvider(p ProviderRef) {
	a.EmployeeID, a.DoctorID = "", ""
	switch p.Kind {
	case ProviderEmployee:
		a.EmployeeID = p.ID
	case ProviderDoctor:
		a.DoctorID = p.ID
	}
}

// Provider is a bookable employee or doctor.
type Provider struct {
	Ref      ProviderRef
	Name     string
	IsActive bool
}

// RecurrenceRule is the persisted description of one booking series.
type RecurrenceRule struct {
	ID          string
	BusinessID  string
	GroupID     string
	Frequency   string
	Interval    int
	EndDate     *time.Time
	Occurrences *int
	CreatedAt   time.Time
}

// ErrNotFound is returned by storage when the requested row does not exist for the tenant.
var ErrNotFound = errors.New("not found")
