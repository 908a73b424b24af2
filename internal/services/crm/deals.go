package crm

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"lumen/internal/domain"
	"lumen/internal/ports"
)

const dateLayout = "2006-01-02"

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// DealInput is used for create and for partial update. ExpectedCloseDate is
// a calendar date (YYYY-MM-DD); an empty string clears it.
type DealInput struct {
	Title             *string  `json:"title"`
	Value             *float64 `json:"value"`
	Currency          *string  `json:"currency"`
	Probability       *int     `json:"probability"`
	StageID           *string  `json:"stageId"`
	CompanyID         *string  `json:"companyId"`
	ContactID         *string  `json:"contactId"`
	ExpectedCloseDate *string  `json:"expectedCloseDate"`
}

func (s *Service) applyDeal(ctx context.Context, d *domain.Deal, in DealInput) error {
	if in.Title != nil {
		title, err := requireName("title", *in.Title)
		if err != nil {
			return err
		}
		d.Title = title
	}
	if in.Value != nil {
		if *in.Value < 0 {
			return invalid("value must not be negative")
		}
		v := *in.Value
		d.Value = &v
	}
	if in.Currency != nil {
		cur := strings.ToUpper(strings.TrimSpace(*in.Currency))
		if !currencyPattern.MatchString(cur) {
			return invalid("currency %q is not an ISO 4217 code", *in.Currency)
		}
		d.Currency = cur
	}
	if in.Probability != nil {
		p := *in.Probability
		if p < 0 || p > 100 {
			return invalid("probability must be between 0 and 100")
		}
		d.Probability = &p
	}
	if in.ExpectedCloseDate != nil {
		d.ExpectedCloseDate = nil
		if raw := strings.TrimSpace(*in.ExpectedCloseDate); raw != "" {
			t, err := time.Parse(dateLayout, raw)
			if err != nil {
				return invalid("expectedCloseDate %q: want YYYY-MM-DD", raw)
			}
			d.ExpectedCloseDate = &t
		}
	}
	if in.CompanyID != nil {
		ref := emptyToNil(in.CompanyID)
		if err := checkRef(ctx, "company", ref, s.companyExists, d.TenantID); err != nil {
			return err
		}
		d.CompanyID = ref
	}
	if in.ContactID != nil {
		ref := emptyToNil(in.ContactID)
		if err := checkRef(ctx, "contact", ref, s.contactExists, d.TenantID); err != nil {
			return err
		}
		d.ContactID = ref
	}
	if in.StageID != nil {
		st, err := s.store.GetStage(ctx, d.TenantID, *in.StageID)
		if errors.Is(err, ports.ErrNotFound) {
			return invalid("stage %q does not exist", *in.StageID)
		}
		if err != nil {
			return err
		}
		s.moveDeal(d, st)
	}
	return nil
}

// moveDeal sets the stage and keeps ClosedAt in step with it.
func (s *Service) moveDeal(d *domain.Deal, st domain.Stage) {
	wasClosed := d.Stage.IsClosed
	d.Stage = st
	switch {
	case st.IsClosed && (!wasClosed || d.ClosedAt == nil):
		now := s.now().UTC()
		d.ClosedAt = &now
	case !st.IsClosed:
		d.ClosedAt = nil
	}
}

// firstOpenStage is where new deals land when no stage is given.
func (s *Service) firstOpenStage(ctx context.Context, tenantID string) (domain.Stage, error) {
	stages, err := s.store.ListStages(ctx, tenantID)
	if err != nil {
		return domain.Stage{}, err
	}
	var first *domain.Stage
	for i := range stages {
		if stages[i].IsClosed {
			continue
		}
		if first == nil || stages[i].Position < first.Position {
			first = &stages[i]
		}
	}
	if first == nil {
		return domain.Stage{}, invalid("tenant has no open pipeline stage")
	}
	return *first, nil
}

func (s *Service) CreateDeal(ctx context.Context, tenantID string, in DealInput) (domain.Deal, error) {
	if in.Title == nil {
		return domain.Deal{}, invalid("title is required")
	}
	now := s.now().UTC()
	d := domain.Deal{ID: s.newID(), TenantID: tenantID, Currency: "USD", CreatedAt: now, UpdatedAt: now}
	if in.StageID == nil {
		st, err := s.firstOpenStage(ctx, tenantID)
		if err != nil {
			return domain.Deal{}, err
		}
		d.Stage = st
	}
	if err := s.applyDeal(ctx, &d, in); err != nil {
		return domain.Deal{}, err
	}
	if err := s.store.CreateDeal(ctx, &d); err != nil {
		return domain.Deal{}, err
	}
	s.logger.Debug("deal created", "tenant", tenantID, "deal", d.ID, "stage", d.Stage.Name)
	return d, nil
}

func (s *Service) GetDeal(ctx context.Context, tenantID, id string) (domain.Deal, error) {
	return s.store.GetDeal(ctx, tenantID, id)
}

func (s *Service) ListDeals(ctx context.Context, tenantID string, opts ports.ListOptions) ([]domain.Deal, error) {
	opts, err := listOptions(opts)
	if err != nil {
		return nil, err
	}
	return s.store.ListDeals(ctx, tenantID, opts)
}

func (s *Service) UpdateDeal(ctx context.Context, tenantID, id string, in DealInput) (domain.Deal, error) {
	d, err := s.store.GetDeal(ctx, tenantID, id)
	if err != nil {
		return domain.Deal{}, err
	}
	if err := s.applyDeal(ctx, &d, in); err != nil {
		return domain.Deal{}, err
	}
	d.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateDeal(ctx, &d); err != nil {
		return domain.Deal{}, err
	}
	return d, nil
}

func (s *Service) DeleteDeal(ctx context.Context, tenantID, id string) error {
	return s.store.DeleteDeal(ctx, tenantID, id)
}

func (s *Service) ListStages(ctx context.Context, tenantID string) ([]domain.Stage, error) {
	return s.store.ListStages(ctx, tenantID)
}
