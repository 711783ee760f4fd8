//
// Tencent is pleased to support the open source community by making trpc-cruise-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-cruise-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package memory provides an in-memory Store for tests and local runs.
package memory

import (
	"context"
	"sync"
	"time"

	"trpc.group/trpc-go/trpc-cruise-agent-go/store"
)

// Store keeps the catalog, carts and orders in process memory.
type Store struct {
	mu      sync.RWMutex
	cruises map[string]store.Cruise
	cabins  map[string][]store.Cabin
	carts   map[string]*store.Cart
	orders  map[string][]store.Order
	now     func() time.Time
}

var _ store.Store = (*Store)(nil)

// Option configures the in-memory store.
type Option func(*Store)

// WithCruises seeds the catalog.
func WithCruises(cruises ...store.Cruise) Option {
	return func(s *Store) {
		for _, c := range cruises {
			s.cruises[c.ID] = c
		}
	}
}

// WithCabins seeds the cabins of one cruise.
func WithCabins(cruiseID string, cabins ...store.Cabin) Option {
	return func(s *Store) {
		s.cabins[cruiseID] = append(s.cabins[cruiseID], cabins...)
	}
}

// WithClock overrides the time source, fixing "today" for search filtering.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		cruises: make(map[string]store.Cruise),
		cabins:  make(map[string][]store.Cabin),
		carts:   make(map[string]*store.Cart),
		orders:  make(map[string][]store.Order),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search returns matching cruises sorted by sail start date.
func (s *Store) Search(ctx context.Context, criteria *store.SearchCriteria) ([]store.Cruise, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	today := s.now().UTC().Format(store.DateLayout)
	var matched []store.Cruise
	for _, cruise := range s.cruises {
		if store.Match(criteria, &cruise, today) {
			matched = append(matched, cruise)
		}
	}
	return store.SortAndLimit(matched), nil
}

// GetCruise returns the cruise with the given ID.
func (s *Store) GetCruise(ctx context.Context, cruiseID string) (*store.Cruise, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cruise, ok := s.cruises[cruiseID]
	if !ok {
		return nil, store.NotFoundError("cruise %s", cruiseID)
	}
	return &cruise, nil
}

// ListCabins returns the bookable cabins of a cruise.
func (s *Store) ListCabins(ctx context.Context, cruiseID string) ([]store.Cabin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.cruises[cruiseID]; !ok {
		return nil, store.NotFoundError("cruise %s", cruiseID)
	}
	return append([]store.Cabin(nil), s.cabins[cruiseID]...), nil
}

// AddToCart puts a cabin into a user's cart.
func (s *Store) AddToCart(ctx context.Context, userID string, entry store.CartEntry) error {
	if userID == "" {
		return store.InvalidError("user ID required")
	}
	if entry.CruiseID == "" || entry.CabinName == "" {
		return store.InvalidError("cart entry needs cruise and cabin")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.AddedAt.IsZero() {
		entry.AddedAt = s.now().UTC()
	}
	cart := s.carts[userID]
	if cart == nil {
		cart = &store.Cart{UserID: userID}
		s.carts[userID] = cart
	}
	for _, existing := range cart.Entries {
		if existing.CruiseID == entry.CruiseID && existing.CabinName == entry.CabinName {
			// Already in the cart; adding again is a no-op.
			return nil
		}
	}
	cart.Entries = append(cart.Entries, entry)
	return nil
}

// RemoveFromCart removes a cabin from a user's cart.
func (s *Store) RemoveFromCart(ctx context.Context, userID, cruiseID, cabinName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart := s.carts[userID]
	if cart == nil {
		return store.NotFoundError("cart for user %s", userID)
	}
	for i, entry := range cart.Entries {
		if entry.CruiseID == cruiseID && entry.CabinName == cabinName {
			cart.Entries = append(cart.Entries[:i], cart.Entries[i+1:]...)
			return nil
		}
	}
	return store.NotFoundError("cabin %s on cruise %s in cart", cabinName, cruiseID)
}

// GetCart returns a user's cart; an empty cart if none exists.
func (s *Store) GetCart(ctx context.Context, userID string) (*store.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cart := s.carts[userID]
	if cart == nil {
		return &store.Cart{UserID: userID}, nil
	}
	cp := &store.Cart{UserID: userID, Entries: append([]store.CartEntry(nil), cart.Entries...)}
	return cp, nil
}

// GetOrders returns a user's orders, newest first.
func (s *Store) GetOrders(ctx context.Context, userID string) ([]store.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	orders := append([]store.Order(nil), s.orders[userID]...)
	for i, j := 0, len(orders)-1; i < j; i, j = i+1, j-1 {
		orders[i], orders[j] = orders[j], orders[i]
	}
	return orders, nil
}

// SaveOrder persists an order.
func (s *Store) SaveOrder(ctx context.Context, order *store.Order) error {
	if order == nil || order.UserID == "" {
		return store.InvalidError("order needs a user ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = s.now().UTC()
	}
	s.orders[order.UserID] = append(s.orders[order.UserID], *order)
	return nil
}

// Close releases the store's resources.
func (s *Store) Close() error {
	return nil
}
