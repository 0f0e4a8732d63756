package fplapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchBootstrap_DecodesElements(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bootstrap-static/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"elements":[{"id":1,"web_name":"Salah","element_type":3,"team":11,"now_cost":130,"status":"a"}]}`))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL}, logrus.New())
	boot, err := c.FetchBootstrap(context.Background())
	require.NoError(t, err)
	require.Len(t, boot.Elements, 1)
	assert.Equal(t, "Salah", boot.Elements[0].WebName)
	assert.Equal(t, 130, boot.Elements[0].NowCost)
}

func TestFetchEntryPicks_BuildsExpectedPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/entry/555/event/7/picks/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"picks":[{"element":10,"is_captain":true,"multiplier":2,"position":1}],"entry_history":{"bank":5,"value":1000,"event_transfers":1}}`))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL}, logrus.New())
	picks, err := c.FetchEntryPicks(context.Background(), 555, 7)
	require.NoError(t, err)
	require.Len(t, picks.Picks, 1)
	assert.True(t, picks.Picks[0].IsCaptain)
	assert.Equal(t, 5, picks.EntryHistory.Bank)
}

func TestFetchBootstrap_WrapsNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL}, logrus.New())
	_, err := c.FetchBootstrap(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestBreaker_OpensAfterRepeatedFailuresAndShortCircuits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, BreakerInterval: time.Minute, BreakerTimeout: time.Minute}, logrus.New())

	var lastErr error
	for i := 0; i < 5; i++ {
		_, lastErr = c.FetchBootstrap(context.Background())
		require.Error(t, lastErr)
	}
	assert.Contains(t, lastErr.Error(), "circuit breaker is open")
}
