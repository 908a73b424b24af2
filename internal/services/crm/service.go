// Package crm validates and stores the tenant's records: companies,
// contacts, deals, tasks and activities.
package crm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	"lumen/internal/logger"
	"lumen/internal/ports"
)

var ErrInvalidInput = errors.New("invalid input")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

const (
	defaultLimit = 50
	maxLimit     = 200
)

type Service struct {
	store  ports.CRMStore
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

func New(store ports.CRMStore, l *slog.Logger) *Service {
	return &Service{store: store, logger: logger.OrDefault(l), now: time.Now, newID: uuid.NewString}
}

func listOptions(o ports.ListOptions) (ports.ListOptions, error) {
	if o.Limit < 0 || o.Offset < 0 {
		return o, invalid("limit and offset must not be negative")
	}
	if o.Limit == 0 {
		o.Limit = defaultLimit
	}
	if o.Limit > maxLimit {
		o.Limit = maxLimit
	}
	o.Query = strings.TrimSpace(o.Query)
	return o, nil
}

// registrableDomain reduces a website to its eTLD+1 so that
// "https://www.shop.example.co.uk/about" and "example.co.uk" match.
func registrableDomain(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", invalid("website: %v", err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || !strings.Contains(host, ".") {
		return "", invalid("website %q has no host", raw)
	}
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		registrable = host
	}
	return registrable, nil
}

func requireName(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", invalid("%s is required", field)
	}
	if len(v) > 200 {
		return "", invalid("%s is longer than 200 characters", field)
	}
	return v, nil
}

// checkRef confirms an optional reference points at a row of the tenant.
func checkRef(ctx context.Context, field string, id *string, get func(ctx context.Context, tenantID, id string) error, tenantID string) error {
	if id == nil || *id == "" {
		return nil
	}
	if err := get(ctx, tenantID, *id); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return invalid("%s %q does not exist", field, *id)
		}
		return err
	}
	return nil
}

func (s *Service) companyExists(ctx context.Context, tenantID, id string) error {
	_, err := s.store.GetCompany(ctx, tenantID, id)
	return err
}

func (s *Service) contactExists(ctx context.Context, tenantID, id string) error {
	_, err := s.store.GetContact(ctx, tenantID, id)
	return err
}

func (s *Service) dealExists(ctx context.Context, tenantID, id string) error {
	_, err := s.store.GetDeal(ctx, tenantID, id)
	return err
}

func emptyToNil(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}
