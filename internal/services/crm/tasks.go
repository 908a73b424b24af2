package crm

import (
	"context"
	"strings"
	"time"

	"lumen/internal/domain"
	"lumen/internal/ports"
)

type TaskInput struct {
	Title     *string    `json:"title"`
	Priority  *string    `json:"priority"`
	DueAt     *time.Time `json:"dueAt"`
	Completed *bool      `json:"completed"`
	DealID    *string    `json:"dealId"`
	ContactID *string    `json:"contactId"`
}

func validPriority(p string) bool {
	switch p {
	case domain.PriorityLow, domain.PriorityNormal, domain.PriorityHigh:
		return true
	}
	return false
}

func (s *Service) applyTask(ctx context.Context, t *domain.Task, in TaskInput) error {
	if in.Title != nil {
		title, err := requireName("title", *in.Title)
		if err != nil {
			return err
		}
		t.Title = title
	}
	if in.Priority != nil {
		p := strings.ToLower(strings.TrimSpace(*in.Priority))
		if !validPriority(p) {
			return invalid("priority %q: want low, normal or high", *in.Priority)
		}
		t.Priority = p
	}
	if in.DueAt != nil {
		due := in.DueAt.UTC()
		t.DueAt = &due
	}
	if in.Completed != nil {
		switch {
		case *in.Completed && t.CompletedAt == nil:
			now := s.now().UTC()
			t.CompletedAt = &now
		case !*in.Completed:
			t.CompletedAt = nil
		}
	}
	if in.DealID != nil {
		ref := emptyToNil(in.DealID)
		if err := checkRef(ctx, "deal", ref, s.dealExists, t.TenantID); err != nil {
			return err
		}
		t.DealID = ref
	}
	if in.ContactID != nil {
		ref := emptyToNil(in.ContactID)
		if err := checkRef(ctx, "contact", ref, s.contactExists, t.TenantID); err != nil {
			return err
		}
		t.ContactID = ref
	}
	return nil
}

func (s *Service) CreateTask(ctx context.Context, tenantID string, in TaskInput) (domain.Task, error) {
	if in.Title == nil {
		return domain.Task{}, invalid("title is required")
	}
	t := domain.Task{ID: s.newID(), TenantID: tenantID, Priority: domain.PriorityNormal, CreatedAt: s.now().UTC()}
	if err := s.applyTask(ctx, &t, in); err != nil {
		return domain.Task{}, err
	}
	if err := s.store.CreateTask(ctx, &t); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (s *Service) GetTask(ctx context.Context, tenantID, id string) (domain.Task, error) {
	return s.store.GetTask(ctx, tenantID, id)
}

func (s *Service) ListTasks(ctx context.Context, tenantID string, opts ports.ListOptions) ([]domain.Task, error) {
	opts, err := listOptions(opts)
	if err != nil {
		return nil, err
	}
	return s.store.ListTasks(ctx, tenantID, opts)
}

func (s *Service) UpdateTask(ctx context.Context, tenantID, id string, in TaskInput) (domain.Task, error) {
	t, err := s.store.GetTask(ctx, tenantID, id)
	if err != nil {
		return domain.Task{}, err
	}
	if err := s.applyTask(ctx, &t, in); err != nil {
		return domain.Task{}, err
	}
	if err := s.store.UpdateTask(ctx, &t); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (s *Service) DeleteTask(ctx context.Context, tenantID, id string) error {
	return s.store.DeleteTask(ctx, tenantID, id)
}

type ActivityInput struct {
	Type        string     `json:"type"`
	Subject     string     `json:"subject"`
	DealID      *string    `json:"dealId"`
	ContactID   *string    `json:"contactId"`
	OccurredAt  *time.Time `json:"occurredAt"`
	ScheduledAt *time.Time `json:"scheduledAt"`
}

func validActivityType(t string) bool {
	switch t {
	case domain.ActivityCall, domain.ActivityEmail, domain.ActivityMeeting, domain.ActivityNote, domain.ActivityMessage:
		return true
	}
	return false
}

// LogActivity records an activity. Activities are append-only.
func (s *Service) LogActivity(ctx context.Context, tenantID string, in ActivityInput) (domain.Activity, error) {
	typ := strings.ToLower(strings.TrimSpace(in.Type))
	if !validActivityType(typ) {
		return domain.Activity{}, invalid("activity type %q", in.Type)
	}
	subject, err := requireName("subject", in.Subject)
	if err != nil {
		return domain.Activity{}, err
	}
	if in.ScheduledAt != nil && typ != domain.ActivityMeeting {
		return domain.Activity{}, invalid("only meetings are scheduled")
	}
	a := domain.Activity{ID: s.newID(), TenantID: tenantID, Type: typ, Subject: subject, OccurredAt: s.now().UTC()}
	if in.OccurredAt != nil {
		a.OccurredAt = in.OccurredAt.UTC()
	}
	if in.ScheduledAt != nil {
		at := in.ScheduledAt.UTC()
		a.ScheduledAt = &at
		if in.OccurredAt == nil {
			a.OccurredAt = at
		}
	}
	a.DealID = emptyToNil(in.DealID)
	if err := checkRef(ctx, "deal", a.DealID, s.dealExists, tenantID); err != nil {
		return domain.Activity{}, err
	}
	a.ContactID = emptyToNil(in.ContactID)
	if err := checkRef(ctx, "contact", a.ContactID, s.contactExists, tenantID); err != nil {
		return domain.Activity{}, err
	}
	if err := s.store.CreateActivity(ctx, &a); err != nil {
		return domain.Activity{}, err
	}
	return a, nil
}

func (s *Service) ListActivities(ctx context.Context, tenantID string, opts ports.ListOptions) ([]domain.Activity, error) {
	opts, err := listOptions(opts)
	if err != nil {
		return nil, err
	}
	return s.store.ListActivities(ctx, tenantID, opts)
}

// SearchResults groups matches of a free-text search by record kind.
type SearchResults struct {
	Companies []domain.Company `json:"companies"`
	Contacts  []domain.Contact `json:"contacts"`
	Deals     []domain.Deal    `json:"deals"`
}

const searchLimit = 10

func (s *Service) Search(ctx context.Context, tenantID, q string) (SearchResults, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return SearchResults{}, invalid("search query is required")
	}
	opts := ports.ListOptions{Query: q, Limit: searchLimit}
	var out SearchResults
	var err error
	if out.Companies, err = s.store.ListCompanies(ctx, tenantID, opts); err != nil {
		return SearchResults{}, err
	}
	if out.Contacts, err = s.store.ListContacts(ctx, tenantID, opts); err != nil {
		return SearchResults{}, err
	}
	if out.Deals, err = s.store.ListDeals(ctx, tenantID, opts); err != nil {
		return SearchResults{}, err
	}
	return out, nil
}
