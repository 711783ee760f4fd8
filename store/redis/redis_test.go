//
// Tencent is pleased to support the open source community by making trpc-cruise-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-cruise-agent-go is licensed under the Apache License Version 2.0.
//
//

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-cruise-agent-go/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	s := NewFromClient(client, "test:")
	s.now = func() time.Time {
		return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	}
	return s
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	cruises := []store.Cruise{
		{
			ID:                 "c-med",
			Title:              "Mediterranean Odyssey",
			Destination:        "Mediterranean",
			EmbarkationPort:    "Barcelona",
			DisembarkationPort: "Barcelona",
			SailStartDate:      "2026-05-01",
			SailEndDate:        "2026-05-11",
			Duration:           10,
			Price:              5400,
			Itinerary:          []store.PortCall{{PortName: "Barcelona"}, {PortName: "Rome (Civitavecchia)"}},
		},
		{
			ID:                 "c-japan",
			Title:              "Japan Discovery",
			Destination:        "Far East",
			EmbarkationPort:    "Tokyo (Yokohama)",
			DisembarkationPort: "Osaka",
			SailStartDate:      "2026-09-03",
			SailEndDate:        "2026-09-15",
			Duration:           12,
			Price:              7800,
		},
		{
			ID:            "c-past",
			Title:         "Last Year's Caribbean",
			SailStartDate: "2025-11-01",
			SailEndDate:   "2025-11-08",
			Duration:      7,
			Price:         2100,
		},
	}
	cabins := map[string][]store.Cabin{
		"c-med": {
			{CruiseID: "c-med", Name: "Vista Suite", Fare: "P2P", Price: 5400},
		},
	}
	require.NoError(t, s.Seed(context.Background(), cruises, cabins))
}

func TestSearchFiltersAndSorts(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	results, err := s.Search(ctx, nil)
	require.NoError(t, err)
	require.Len(t, results, 2, "past sailings excluded")
	assert.Equal(t, "c-med", results[0].ID)
	assert.Equal(t, "c-japan", results[1].ID)

	results, err = s.Search(ctx, &store.SearchCriteria{Destinations: []string{"rome"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c-med", results[0].ID)
}

func TestGetCruiseAndCabins(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	cruise, err := s.GetCruise(ctx, "c-med")
	require.NoError(t, err)
	assert.Equal(t, "Mediterranean Odyssey", cruise.Title)

	_, err = s.GetCruise(ctx, "missing")
	assert.True(t, store.IsNotFound(err))

	cabins, err := s.ListCabins(ctx, "c-med")
	require.NoError(t, err)
	require.Len(t, cabins, 1)
	assert.Equal(t, "Vista Suite", cabins[0].Name)

	// A cruise without seeded cabins lists empty, not an error.
	cabins, err = s.ListCabins(ctx, "c-japan")
	require.NoError(t, err)
	assert.Empty(t, cabins)
}

func TestCartLifecycle(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	entry := store.CartEntry{CruiseID: "c-med", CabinName: "Vista Suite", Price: 5400}
	require.NoError(t, s.AddToCart(ctx, "u-1", entry))
	require.NoError(t, s.AddToCart(ctx, "u-1", entry), "duplicate add is a no-op")

	cart, err := s.GetCart(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, cart.Entries, 1)

	require.NoError(t, s.RemoveFromCart(ctx, "u-1", "c-med", "Vista Suite"))
	err = s.RemoveFromCart(ctx, "u-1", "c-med", "Vista Suite")
	assert.True(t, store.IsNotFound(err))

	cart, err = s.GetCart(ctx, "u-1")
	require.NoError(t, err)
	assert.Empty(t, cart.Entries)
}

func TestOrdersNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveOrder(ctx, &store.Order{ID: "o-1", UserID: "u-1", Status: store.OrderStatusPaid}))
	require.NoError(t, s.SaveOrder(ctx, &store.Order{ID: "o-2", UserID: "u-1", Status: store.OrderStatusPaid}))

	orders, err := s.GetOrders(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "o-2", orders[0].ID)
}

func TestUnavailableBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	s := NewFromClient(client, "test:")
	mr.Close()

	_, err := s.Search(context.Background(), nil)
	require.Error(t, err)
	var storeErr *store.Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, store.KindUnavailable, storeErr.Kind)
}
