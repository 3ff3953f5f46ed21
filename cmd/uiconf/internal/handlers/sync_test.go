package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalib/uiconf/cmd/uiconf/internal/constants"
	apierrors "github.com/thalib/uiconf/cmd/uiconf/internal/errors"
	"github.com/thalib/uiconf/cmd/uiconf/internal/ratio"
	"github.com/thalib/uiconf/cmd/uiconf/internal/ratiosync"
)

type fakeFetcher struct {
	data map[string]ratio.Config
	got  []ratiosync.Upstream
}

func (f *fakeFetcher) FetchAll(ctx context.Context, upstreams []ratiosync.Upstream) []ratiosync.Result {
	f.got = upstreams
	results := make([]ratiosync.Result, len(upstreams))
	for i, u := range upstreams {
		if data, ok := f.data[u.Name]; ok {
			results[i] = ratiosync.Result{Upstream: u, Data: data}
		} else {
			results[i] = ratiosync.Result{Upstream: u, Err: errors.New("connection refused")}
		}
	}
	return results
}

func TestSyncHandler_Fetch(t *testing.T) {
	f := newFixture(t)
	_, err := f.ratios.Upsert(context.Background(), ratio.Entry{ModelName: "gpt-4o", ModelRatio: 1.25, CompletionRatio: 4})
	require.NoError(t, err)

	fetcher := &fakeFetcher{data: map[string]ratio.Config{
		"main": {ratio.TypeModelRatio: {"gpt-4o": 2.5}},
	}}
	h := NewSyncHandler(f.ratios, fetcher, f.errors)

	rec := do(h.Fetch, request(http.MethodPost, constants.RouteRatioSyncFetch, FetchRequest{
		Upstreams: []ratiosync.Upstream{
			{Name: "main", BaseURL: "https://main.example.com"},
			{Name: "backup", BaseURL: "https://backup.example.com", Endpoint: "/api/ratios"},
		},
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp FetchResponse
	decodeData(t, rec, &resp)

	require.Contains(t, resp.Differences, "gpt-4o")
	diff := resp.Differences["gpt-4o"][ratio.TypeModelRatio]
	require.NotNil(t, diff.Current)
	assert.Equal(t, 1.25, *diff.Current)
	assert.Equal(t, map[string]float64{"main": 2.5}, diff.Upstreams)

	assert.Equal(t, []ratiosync.TestResult{
		{Name: "main", Status: ratiosync.StatusSuccess},
		{Name: "backup", Status: ratiosync.StatusError, Error: "connection refused"},
	}, resp.TestResults)

	require.Len(t, fetcher.got, 2)
	assert.Equal(t, constants.DefaultEndpoint, fetcher.got[0].Endpoint)
}

func TestSyncHandler_FetchValidation(t *testing.T) {
	f := newFixture(t)
	h := NewSyncHandler(f.ratios, &fakeFetcher{}, f.errors)

	tests := []struct {
		name      string
		upstreams []ratiosync.Upstream
	}{
		{"none", nil},
		{"bad url", []ratiosync.Upstream{{Name: "a", BaseURL: "not a url"}}},
		{"relative endpoint", []ratiosync.Upstream{{Name: "a", BaseURL: "http://h", Endpoint: "ratio"}}},
		{"duplicate", []ratiosync.Upstream{{Name: "a", BaseURL: "http://h"}, {Name: "a", BaseURL: "http://g"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h.Fetch, request(http.MethodPost, constants.RouteRatioSyncFetch, FetchRequest{Upstreams: tt.upstreams}))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, apierrors.CodeInvalidUpstream, decodeError(t, rec).ErrorCode)
		})
	}
}
