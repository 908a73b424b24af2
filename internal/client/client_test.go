package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen/internal/report"
	"lumen/internal/services/crm"
)

func serve(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", "tok")
}

func TestNow_SendsTokenAndAnchor(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dashboard/now", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "2026-10-14T10:00:00Z", r.URL.Query().Get("at"))
		_, _ = w.Write([]byte(`{"urgentWithinDays":3,"briefing":"Nothing urgent today."}`))
	})
	now, err := c.Now(context.Background(), time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 3, now.UrgentWithinDays)
	require.Equal(t, "Nothing urgent today.", now.Briefing)
}

func TestErrors_MatchSentinels(t *testing.T) {
	cases := []struct {
		status int
		body   string
		is     []error
		not    []error
	}{
		{http.StatusServiceUnavailable, `{"error":"unavailable","message":"db down","retryable":true}`, []error{ErrUnavailable}, []error{ErrGenerative}},
		{http.StatusBadGateway, `{"error":"generative_failure"}`, []error{ErrGenerative}, []error{ErrGenerativeTimeout}},
		{http.StatusGatewayTimeout, `{"error":"generative_timeout"}`, []error{ErrGenerative, ErrGenerativeTimeout, context.DeadlineExceeded}, nil},
		{http.StatusUnprocessableEntity, `{"error":"no_match"}`, []error{ErrNoMatch}, []error{ErrGenerative}},
		{http.StatusNotFound, `{"error":"not_found"}`, []error{ErrNotFound}, nil},
		{http.StatusUnauthorized, `not json`, []error{ErrUnauthorized}, nil},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			c := serve(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := c.Horizon(context.Background(), time.Time{})
			require.Error(t, err)
			for _, target := range tc.is {
				assert.ErrorIs(t, err, target)
			}
			for _, target := range tc.not {
				assert.NotErrorIs(t, err, target)
			}
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.status, apiErr.Status)
			assert.NotEmpty(t, apiErr.Code)
		})
	}
}

func TestGenerate_DecodesComponents(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "win rate", body["query"])
		_, _ = w.Write([]byte(`{"id":"r1","title":"Win rate","components":[{"type":"metric_card","title":"Win rate","value":0.5},{"type":"gauge"}]}`))
	})
	spec, err := c.Generate(context.Background(), "win rate")
	require.NoError(t, err)
	require.Equal(t, report.LayoutGrid, spec.Layout)
	require.Len(t, spec.Components, 2)
	require.Equal(t, 1, spec.Renderable())
}

func TestRecords_PathsAndPayloads(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "POST /deals":
			var in crm.DealInput
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "d1", "title": *in.Title, "currency": "USD"})
		case "GET /contacts/c%201", "GET /contacts/c 1":
			_, _ = w.Write([]byte(`{"id":"c 1","name":"Ada"}`))
		case "GET /search":
			assert.Equal(t, "acme", r.URL.Query().Get("q"))
			_, _ = w.Write([]byte(`{"companies":[{"id":"co1","name":"Acme"}],"contacts":[],"deals":[]}`))
		case "GET /activities":
			assert.Equal(t, "20", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(`{"items":[{"id":"a1","type":"call","subject":"Intro"}]}`))
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusTeapot)
		}
	})
	ctx := context.Background()
	title := "Acme renewal"
	deal, err := c.CreateDeal(ctx, crm.DealInput{Title: &title})
	require.NoError(t, err)
	require.Equal(t, "Acme renewal", deal.Title)

	contact, err := c.GetContact(ctx, "c 1")
	require.NoError(t, err)
	require.Equal(t, "Ada", contact.Name)

	res, err := c.Search(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, res.Companies, 1)

	acts, err := c.ListActivities(ctx, 20)
	require.NoError(t, err)
	require.Len(t, acts, 1)
}
