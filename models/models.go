package models

// Booking lifecycle. Terminal states absorb; there is no way back out.
const (
	BookingBooked    = "booked"
	BookingCheckedIn = "checkedin"
	BookingCancelled = "cancelled"
	BookingExpired   = "expired"
)

// Priority categories for darshan bookings.
const (
	CategoryGeneral    = "general"
	CategoryElderly    = "elderly"
	CategoryDisabled   = "disabled"
	CategoryWomenChild = "women-with-children"
)

// Incident lifecycle: pending -> assigned -> resolved, strictly linear.
const (
	IncidentPending  = "pending"
	IncidentAssigned = "assigned"
	IncidentResolved = "resolved"
)

// Incident types and priorities.
const (
	IncidentMedical   = "medical"
	IncidentSecurity  = "security"
	IncidentLostChild = "lost-child"
	IncidentCrowdRisk = "crowd-risk"
)

const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

// Resource categories and statuses.
const (
	ResourceAmbulance    = "ambulance"
	ResourceMedicalBooth = "medical-booth"
	ResourceFirstAid     = "first-aid-team"
	ResourceSecurityUnit = "security-unit"
)

const (
	ResourceAvailable = "available"
	ResourceDeployed  = "deployed"
	ResourceOffline   = "offline"
)

type Slot struct {
	ID        string `json:"id" bson:"id"`
	Date      string `json:"date" bson:"date"` // YYYY-MM-DD
	Start     string `json:"start" bson:"start"`
	End       string `json:"end" bson:"end"`
	Capacity  int    `json:"capacity" bson:"capacity"`
	Reserved  int    `json:"reserved" bson:"reserved"`
	Locked    bool   `json:"locked" bson:"locked"`
	Zone      string `json:"zone,omitempty" bson:"zone,omitempty"`
	CreatedAt int64  `json:"createdAt" bson:"createdAt"`
}

func (s Slot) Remaining() int {
	return s.Capacity - s.Reserved
}

type Booking struct {
	ID          string `json:"id" bson:"id"`
	SlotID      string `json:"slotId" bson:"slotId"`
	Date        string `json:"date" bson:"date"`
	HolderName  string `json:"holderName" bson:"holderName"`
	Phone       string `json:"phone,omitempty" bson:"phone,omitempty"`
	Email       string `json:"email,omitempty" bson:"email,omitempty"`
	Members     int    `json:"members" bson:"members"`
	Category    string `json:"category" bson:"category"`
	Gate        string `json:"gate" bson:"gate"`
	Status      string `json:"status" bson:"status"`
	CreatedAt   int64  `json:"createdAt" bson:"createdAt"`
	CheckedInAt int64  `json:"checkedInAt,omitempty" bson:"checkedInAt,omitempty"`
}

type Incident struct {
	ID            string `json:"id" bson:"id"`
	Type          string `json:"type" bson:"type"`
	Priority      string `json:"priority" bson:"priority"`
	PriorityRank  int    `json:"-" bson:"priorityRank"` // sort key, derived from Priority at intake
	Description   string `json:"description,omitempty" bson:"description,omitempty"`
	Location      string `json:"location" bson:"location"`
	ReporterName  string `json:"reporterName,omitempty" bson:"reporterName,omitempty"`
	ReporterPhone string `json:"reporterPhone,omitempty" bson:"reporterPhone,omitempty"`
	Status        string `json:"status" bson:"status"`
	ResourceID    string `json:"resourceId,omitempty" bson:"resourceId,omitempty"`
	CreatedAt     int64  `json:"createdAt" bson:"createdAt"`
	ResolvedAt    int64  `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`
}

type Resource struct {
	ID         string `json:"id" bson:"id"`
	Category   string `json:"category" bson:"category"`
	Personnel  int    `json:"personnel,omitempty" bson:"personnel,omitempty"`
	Status     string `json:"status" bson:"status"`
	Location   string `json:"location,omitempty" bson:"location,omitempty"`
	IncidentID string `json:"incidentId,omitempty" bson:"incidentId,omitempty"`
}

type Zone struct {
	ID        string `json:"id" bson:"id"`
	Name      string `json:"name,omitempty" bson:"name,omitempty"`
	Capacity  int    `json:"capacity" bson:"capacity"`
	Count     int    `json:"count" bson:"count"`
	UpdatedAt int64  `json:"updatedAt" bson:"updatedAt"`
}

// Transition is the replayable state-change event published on every status
// flip. Consumers (notification fanout, live boards) key off Entity+To.
type Transition struct {
	Entity string `json:"entity"` // "booking" | "incident" | "resource" | "slot"
	ID     string `json:"id"`
	From   string `json:"from"`
	To     string `json:"to"`
	At     int64  `json:"at"`
	Actor  string `json:"actor,omitempty"`
}
