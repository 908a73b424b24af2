package domain

import "time"

// Core CRM records. Every row belongs to exactly one tenant; the adapters
// filter by TenantID and the services never see cross-tenant data.

type Tenant struct {
	ID       string
	Name     string
	Timezone string
}

type Company struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"-"`
	Name      string    `json:"name"`
	Website   *string   `json:"website,omitempty"`
	Domain    *string   `json:"domain,omitempty"` // registrable domain (eTLD+1) derived from Website
	Industry  string    `json:"industry,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Contact struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"-"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CompanyID *string   `json:"companyId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Stage is one column of the tenant's pipeline. Position orders stages left
// to right; closed stages sit after the open ones.
type Stage struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Position    int    `json:"position"`
	Probability int    `json:"probability"` // default win probability, 0-100
	IsClosed    bool   `json:"isClosed"`
	IsWon       bool   `json:"isWon"`
}

type Deal struct {
	ID                string     `json:"id"`
	TenantID          string     `json:"-"`
	Title             string     `json:"title"`
	Value             *float64   `json:"value,omitempty"`
	Currency          string     `json:"currency"`
	Probability       *int       `json:"probability,omitempty"`
	Stage             Stage      `json:"stage"`
	CompanyID         *string    `json:"companyId,omitempty"`
	ContactID         *string    `json:"contactId,omitempty"`
	ExpectedCloseDate *time.Time `json:"expectedCloseDate,omitempty"`
	ClosedAt          *time.Time `json:"closedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// Amount returns the deal value with an unset value counted as zero.
func (d Deal) Amount() float64 {
	if d.Value == nil {
		return 0
	}
	return *d.Value
}

func (d Deal) IsOpen() bool { return !d.Stage.IsClosed }

// WinProbability prefers the deal's own probability over the stage default.
func (d Deal) WinProbability() float64 {
	if d.Probability != nil {
		return float64(*d.Probability) / 100
	}
	return float64(d.Stage.Probability) / 100
}

// ClosedOn is the moment the deal left the open pipeline. Deals closed before
// closed_at was tracked fall back to their last update.
func (d Deal) ClosedOn() (time.Time, bool) {
	if !d.Stage.IsClosed {
		return time.Time{}, false
	}
	if d.ClosedAt != nil {
		return *d.ClosedAt, true
	}
	return d.UpdatedAt, true
}

const (
	ActivityCall    = "call"
	ActivityEmail   = "email"
	ActivityMeeting = "meeting"
	ActivityNote    = "note"
	ActivityMessage = "message"
)

type Activity struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"-"`
	Type        string     `json:"type"`
	Subject     string     `json:"subject"`
	DealID      *string    `json:"dealId,omitempty"`
	ContactID   *string    `json:"contactId,omitempty"`
	OccurredAt  time.Time  `json:"occurredAt"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"` // meetings only
}

const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

type Task struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"-"`
	Title       string     `json:"title"`
	Priority    string     `json:"priority"`
	DueAt       *time.Time `json:"dueAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	DealID      *string    `json:"dealId,omitempty"`
	ContactID   *string    `json:"contactId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (t Task) Done() bool { return t.CompletedAt != nil }

// Snapshot is a point-in-time read of everything the dashboard aggregators
// need for one tenant.
type Snapshot struct {
	Stages     []Stage
	Deals      []Deal
	Activities []Activity
	Tasks      []Task
}
