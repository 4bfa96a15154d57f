package models

import (
	"strings"
	"time"
)

// Category is the kind of civic issue a report describes
type Category string

// Report categories
const (
	CategoryRoads       Category = "Roads"
	CategoryGarbage     Category = "Garbage"
	CategoryElectricity Category = "Electricity"
	CategoryWater       Category = "Water"
	CategoryTraffic     Category = "Traffic"
	CategoryOther       Category = "Other"
)

// Categories lists every category in display order
var Categories = []Category{
	CategoryRoads,
	CategoryGarbage,
	CategoryElectricity,
	CategoryWater,
	CategoryTraffic,
	CategoryOther,
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Urgency is the reporter's estimate of how pressing the issue is
type Urgency string

// Urgency levels
const (
	UrgencyLow    Urgency = "LOW"
	UrgencyMedium Urgency = "MEDIUM"
	UrgencyHigh   Urgency = "HIGH"
)

// Valid reports whether u is a known urgency level
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	}
	return false
}

// Status is a report's position in the resolution lifecycle
type Status string

// Report statuses
const (
	StatusSubmitted   Status = "SUBMITTED"
	StatusUnderReview Status = "UNDER_REVIEW"
	StatusAssigned    Status = "ASSIGNED"
	StatusInProgress  Status = "IN_PROGRESS"
	StatusResolved    Status = "RESOLVED"
	StatusClosed      Status = "CLOSED"
	StatusRejected    Status = "REJECTED"
)

// Statuses lists every status in lifecycle order
var Statuses = []Status{
	StatusSubmitted,
	StatusUnderReview,
	StatusAssigned,
	StatusInProgress,
	StatusResolved,
	StatusClosed,
	StatusRejected,
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Pending is true while a report still awaits an outcome
func (s Status) Pending() bool {
	switch s {
	case StatusResolved, StatusClosed, StatusRejected:
		return false
	}
	return true
}

// ParseStatus accepts the canonical form as well as lower case and spaces, e.g. "under review"
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), " ", "_")))
	return s, s.Valid()
}

// Department is the authority unit a report is assigned to
type Department string

// Departments
const (
	DepartmentSanitation  Department = "Sanitation"
	DepartmentRoads       Department = "Roads & Transport"
	DepartmentWater       Department = "Water Supply"
	DepartmentElectricity Department = "Electricity"
	DepartmentOther       Department = "Other"
)

// Valid reports whether d is a known department
func (d Department) Valid() bool {
	switch d {
	case DepartmentSanitation, DepartmentRoads, DepartmentWater, DepartmentElectricity, DepartmentOther:
		return true
	}
	return false
}

// Coordinates is a WGS84 position
type Coordinates struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// Valid checks the latitude and longitude ranges
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// Comment is a citizen remark attached to a report
type Comment struct {
	ID        string    `bson:"id" json:"id"`
	AuthorID  string    `bson:"authorId" json:"authorId"`
	Text      string    `bson:"text" json:"text"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// TimelineEvent is one entry of a report's audit trail
type TimelineEvent struct {
	ID        string    `bson:"id" json:"id"`
	Status    Status    `bson:"status" json:"status"`
	Note      string    `bson:"note" json:"note"`
	ActorID   string    `bson:"actorId" json:"actorId"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Report holds the structure for a citizen-submitted civic issue
type Report struct {
	ID              string          `bson:"_id" json:"id"`
	Title           string          `bson:"title" json:"title"`
	Description     string          `bson:"description" json:"description"`
	Category        Category        `bson:"category" json:"category"`
	Urgency         Urgency         `bson:"urgency" json:"urgency"`
	ImageRef        string          `bson:"imageRef,omitempty" json:"imageRef,omitempty"`
	Address         string          `bson:"address,omitempty" json:"address,omitempty"`
	Location        Coordinates     `bson:"location" json:"location"`
	ReporterID      string          `bson:"reporterId" json:"reporterId"`
	ReporterTrust   int             `bson:"reporterTrust" json:"reporterTrust"`
	Status          Status          `bson:"status" json:"status"`
	Department      Department      `bson:"department,omitempty" json:"department,omitempty"`
	Upvotes         int             `bson:"upvotes" json:"upvotes"`
	Comments        []Comment       `bson:"comments" json:"comments"`
	ValidationCount int             `bson:"validationCount" json:"validationCount"`
	Validators      []string        `bson:"validators" json:"validators"`
	Timeline        []TimelineEvent `bson:"timeline" json:"timeline"`
	CreatedAt       time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// Clone returns a deep copy so callers never share slices with the store
func (r Report) Clone() Report {
	c := r
	c.Comments = append([]Comment{}, r.Comments...)
	c.Validators = append([]string{}, r.Validators...)
	c.Timeline = append([]TimelineEvent{}, r.Timeline...)
	return c
}

// HasValidator reports whether userID has already validated the report
func (r Report) HasValidator(userID string) bool {
	for _, v := range r.Validators {
		if v == userID {
			return true
		}
	}
	return false
}

// LastEvent returns the most recent timeline entry
func (r Report) LastEvent() TimelineEvent {
	if len(r.Timeline) == 0 {
		return TimelineEvent{}
	}
	return r.Timeline[len(r.Timeline)-1]
}

// Draft is the raw input for a new report, assembled by the transport layer from
// the reporter, geo and media collaborators
type Draft struct {
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Category      Category    `json:"category"`
	Urgency       Urgency     `json:"urgency"`
	ImageRef      string      `json:"imageRef"`
	Address       string      `json:"address"`
	Location      Coordinates `json:"location"`
	ReporterID    string      `json:"-"`
	ReporterTrust int         `json:"-"`
}
