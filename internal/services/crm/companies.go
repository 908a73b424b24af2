package crm

import (
	"context"
	"net/mail"
	"strings"

	"lumen/internal/domain"
	"lumen/internal/ports"
)

// CompanyInput is used for create and for partial update; nil fields are
// left unchanged on update.
type CompanyInput struct {
	Name     *string `json:"name"`
	Website  *string `json:"website"`
	Industry *string `json:"industry"`
}

func (s *Service) applyCompany(c *domain.Company, in CompanyInput) error {
	if in.Name != nil {
		name, err := requireName("name", *in.Name)
		if err != nil {
			return err
		}
		c.Name = name
	}
	if in.Website != nil {
		c.Website = emptyToNil(in.Website)
		c.Domain = nil
		if c.Website != nil {
			d, err := registrableDomain(*c.Website)
			if err != nil {
				return err
			}
			c.Domain = &d
		}
	}
	if in.Industry != nil {
		c.Industry = strings.TrimSpace(*in.Industry)
	}
	return nil
}

func (s *Service) CreateCompany(ctx context.Context, tenantID string, in CompanyInput) (domain.Company, error) {
	if in.Name == nil {
		return domain.Company{}, invalid("name is required")
	}
	now := s.now().UTC()
	c := domain.Company{ID: s.newID(), TenantID: tenantID, CreatedAt: now, UpdatedAt: now}
	if err := s.applyCompany(&c, in); err != nil {
		return domain.Company{}, err
	}
	if err := s.store.CreateCompany(ctx, &c); err != nil {
		return domain.Company{}, err
	}
	s.logger.Debug("company created", "tenant", tenantID, "company", c.ID)
	return c, nil
}

func (s *Service) GetCompany(ctx context.Context, tenantID, id string) (domain.Company, error) {
	return s.store.GetCompany(ctx, tenantID, id)
}

func (s *Service) ListCompanies(ctx context.Context, tenantID string, opts ports.ListOptions) ([]domain.Company, error) {
	opts, err := listOptions(opts)
	if err != nil {
		return nil, err
	}
	return s.store.ListCompanies(ctx, tenantID, opts)
}

func (s *Service) UpdateCompany(ctx context.Context, tenantID, id string, in CompanyInput) (domain.Company, error) {
	c, err := s.store.GetCompany(ctx, tenantID, id)
	if err != nil {
		return domain.Company{}, err
	}
	if err := s.applyCompany(&c, in); err != nil {
		return domain.Company{}, err
	}
	c.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateCompany(ctx, &c); err != nil {
		return domain.Company{}, err
	}
	return c, nil
}

func (s *Service) DeleteCompany(ctx context.Context, tenantID, id string) error {
	return s.store.DeleteCompany(ctx, tenantID, id)
}

type ContactInput struct {
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	CompanyID *string `json:"companyId"`
}

func (s *Service) applyContact(ctx context.Context, c *domain.Contact, in ContactInput) error {
	if in.Name != nil {
		name, err := requireName("name", *in.Name)
		if err != nil {
			return err
		}
		c.Name = name
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email != "" {
			addr, err := mail.ParseAddress(email)
			if err != nil {
				return invalid("email %q: %v", email, err)
			}
			email = strings.ToLower(addr.Address)
		}
		c.Email = email
	}
	if in.Phone != nil {
		c.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.CompanyID != nil {
		ref := emptyToNil(in.CompanyID)
		if err := checkRef(ctx, "company", ref, s.companyExists, c.TenantID); err != nil {
			return err
		}
		c.CompanyID = ref
	}
	return nil
}

func (s *Service) CreateContact(ctx context.Context, tenantID string, in ContactInput) (domain.Contact, error) {
	if in.Name == nil {
		return domain.Contact{}, invalid("name is required")
	}
	now := s.now().UTC()
	c := domain.Contact{ID: s.newID(), TenantID: tenantID, CreatedAt: now, UpdatedAt: now}
	if err := s.applyContact(ctx, &c, in); err != nil {
		return domain.Contact{}, err
	}
	if err := s.store.CreateContact(ctx, &c); err != nil {
		return domain.Contact{}, err
	}
	return c, nil
}

func (s *Service) GetContact(ctx context.Context, tenantID, id string) (domain.Contact, error) {
	return s.store.GetContact(ctx, tenantID, id)
}

func (s *Service) ListContacts(ctx context.Context, tenantID string, opts ports.ListOptions) ([]domain.Contact, error) {
	opts, err := listOptions(opts)
	if err != nil {
		return nil, err
	}
	return s.store.ListContacts(ctx, tenantID, opts)
}

func (s *Service) UpdateContact(ctx context.Context, tenantID, id string, in ContactInput) (domain.Contact, error) {
	c, err := s.store.GetContact(ctx, tenantID, id)
	if err != nil {
		return domain.Contact{}, err
	}
	if err := s.applyContact(ctx, &c, in); err != nil {
		return domain.Contact{}, err
	}
	c.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateContact(ctx, &c); err != nil {
		return domain.Contact{}, err
	}
	return c, nil
}

func (s *Service) DeleteContact(ctx context.Context, tenantID, id string) error {
	return s.store.DeleteContact(ctx, tenantID, id)
}
