package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"lumen/internal/domain"
	"lumen/internal/services/crm"
)

type list[T any] struct {
	Items []T `json:"items"`
}

func listQuery(q string, limit int) url.Values {
	v := url.Values{}
	if q != "" {
		v.Set("q", q)
	}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	return v
}

func get[T any](ctx context.Context, c *Client, kind, id string) (T, error) {
	var out T
	err := c.do(ctx, http.MethodGet, "/"+kind+"/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

func create[T any](ctx context.Context, c *Client, kind string, in any) (T, error) {
	var out T
	err := c.do(ctx, http.MethodPost, "/"+kind, nil, in, &out)
	return out, err
}

func listOf[T any](ctx context.Context, c *Client, path string, q url.Values) ([]T, error) {
	var out list[T]
	err := c.do(ctx, http.MethodGet, path, q, nil, &out)
	return out.Items, err
}

func (c *Client) GetDeal(ctx context.Context, id string) (domain.Deal, error) {
	return get[domain.Deal](ctx, c, "deals", id)
}

func (c *Client) GetContact(ctx context.Context, id string) (domain.Contact, error) {
	return get[domain.Contact](ctx, c, "contacts", id)
}

func (c *Client) GetCompany(ctx context.Context, id string) (domain.Company, error) {
	return get[domain.Company](ctx, c, "companies", id)
}

func (c *Client) CreateDeal(ctx context.Context, in crm.DealInput) (domain.Deal, error) {
	return create[domain.Deal](ctx, c, "deals", in)
}

func (c *Client) CreateContact(ctx context.Context, in crm.ContactInput) (domain.Contact, error) {
	return create[domain.Contact](ctx, c, "contacts", in)
}

func (c *Client) CreateTask(ctx context.Context, in crm.TaskInput) (domain.Task, error) {
	return create[domain.Task](ctx, c, "tasks", in)
}

func (c *Client) ListContacts(ctx context.Context, q string, limit int) ([]domain.Contact, error) {
	return listOf[domain.Contact](ctx, c, "/contacts", listQuery(q, limit))
}

func (c *Client) ListActivities(ctx context.Context, limit int) ([]domain.Activity, error) {
	return listOf[domain.Activity](ctx, c, "/activities", listQuery("", limit))
}

func (c *Client) ListStages(ctx context.Context) ([]domain.Stage, error) {
	return listOf[domain.Stage](ctx, c, "/stages", nil)
}

func (c *Client) Search(ctx context.Context, q string) (crm.SearchResults, error) {
	var out crm.SearchResults
	err := c.do(ctx, http.MethodGet, "/search", url.Values{"q": {q}}, nil, &out)
	return out, err
}
