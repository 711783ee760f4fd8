//
// Tencent is pleased to support the open source community by making trpc-cruise-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-cruise-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package redis provides a Redis-backed Store for multi-node deployments.
// Records are JSON documents; the catalog is indexed by a cruise ID set and
// searches filter in process with the shared matcher.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"trpc.group/trpc-go/trpc-cruise-agent-go/store"
)

const defaultPrefix = "cruise:"

// Store implements store.Store over Redis.
type Store struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

var _ store.Store = (*Store)(nil)

// Config holds Redis connection configuration.
type Config struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Prefix is the key prefix for all store keys (default: "cruise:").
	Prefix string
}

// New connects to Redis and returns a store over it.
func New(cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewFromClient(client, cfg.Prefix), nil
}

// NewFromClient creates a store from an existing client. Useful for testing
// with miniredis.
func NewFromClient(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix, now: time.Now}
}

// Key helpers
func (s *Store) cruiseKey(cruiseID string) string { return s.prefix + "cruise:" + cruiseID }
func (s *Store) cruiseIndexKey() string           { return s.prefix + "cruises" }
func (s *Store) cabinsKey(cruiseID string) string { return s.prefix + "cabins:" + cruiseID }
func (s *Store) cartKey(userID string) string     { return s.prefix + "cart:" + userID }
func (s *Store) ordersKey(userID string) string   { return s.prefix + "orders:" + userID }

// Seed loads the catalog: cruises plus their cabins. Intended for
// bootstrapping and tests.
func (s *Store) Seed(ctx context.Context, cruises []store.Cruise, cabins map[string][]store.Cabin) error {
	for _, cruise := range cruises {
		data, err := json.Marshal(cruise)
		if err != nil {
			return store.UnavailableError(err, "encode cruise %s", cruise.ID)
		}
		if err := s.client.Set(ctx, s.cruiseKey(cruise.ID), data, 0).Err(); err != nil {
			return store.UnavailableError(err, "seed cruise %s", cruise.ID)
		}
		if err := s.client.SAdd(ctx, s.cruiseIndexKey(), cruise.ID).Err(); err != nil {
			return store.UnavailableError(err, "index cruise %s", cruise.ID)
		}
	}
	for cruiseID, list := range cabins {
		data, err := json.Marshal(list)
		if err != nil {
			return store.UnavailableError(err, "encode cabins of %s", cruiseID)
		}
		if err := s.client.Set(ctx, s.cabinsKey(cruiseID), data, 0).Err(); err != nil {
			return store.UnavailableError(err, "seed cabins of %s", cruiseID)
		}
	}
	return nil
}

// Search returns matching cruises sorted by sail start date.
func (s *Store) Search(ctx context.Context, criteria *store.SearchCriteria) ([]store.Cruise, error) {
	ids, err := s.client.SMembers(ctx, s.cruiseIndexKey()).Result()
	if err != nil {
		return nil, store.UnavailableError(err, "list cruises")
	}
	today := s.now().UTC().Format(store.DateLayout)
	var matched []store.Cruise
	for _, id := range ids {
		cruise, err := s.getCruise(ctx, id)
		if err != nil {
			if store.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if store.Match(criteria, cruise, today) {
			matched = append(matched, *cruise)
		}
	}
	return store.SortAndLimit(matched), nil
}

// GetCruise returns the cruise with the given ID.
func (s *Store) GetCruise(ctx context.Context, cruiseID string) (*store.Cruise, error) {
	return s.getCruise(ctx, cruiseID)
}

func (s *Store) getCruise(ctx context.Context, cruiseID string) (*store.Cruise, error) {
	data, err := s.client.Get(ctx, s.cruiseKey(cruiseID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.NotFoundError("cruise %s", cruiseID)
	}
	if err != nil {
		return nil, store.UnavailableError(err, "get cruise %s", cruiseID)
	}
	var cruise store.Cruise
	if err := json.Unmarshal(data, &cruise); err != nil {
		return nil, store.UnavailableError(err, "decode cruise %s", cruiseID)
	}
	return &cruise, nil
}

// ListCabins returns the bookable cabins of a cruise.
func (s *Store) ListCabins(ctx context.Context, cruiseID string) ([]store.Cabin, error) {
	if _, err := s.getCruise(ctx, cruiseID); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, s.cabinsKey(cruiseID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, store.UnavailableError(err, "get cabins of %s", cruiseID)
	}
	var cabins []store.Cabin
	if err := json.Unmarshal(data, &cabins); err != nil {
		return nil, store.UnavailableError(err, "decode cabins of %s", cruiseID)
	}
	return cabins, nil
}

// AddToCart puts a cabin into a user's cart.
func (s *Store) AddToCart(ctx context.Context, userID string, entry store.CartEntry) error {
	if userID == "" {
		return store.InvalidError("user ID required")
	}
	if entry.CruiseID == "" || entry.CabinName == "" {
		return store.InvalidError("cart entry needs cruise and cabin")
	}
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return err
	}
	for _, existing := range cart.Entries {
		if existing.CruiseID == entry.CruiseID && existing.CabinName == entry.CabinName {
			return nil
		}
	}
	if entry.AddedAt.IsZero() {
		entry.AddedAt = s.now().UTC()
	}
	cart.Entries = append(cart.Entries, entry)
	return s.putCart(ctx, cart)
}

// RemoveFromCart removes a cabin from a user's cart.
func (s *Store) RemoveFromCart(ctx context.Context, userID, cruiseID, cabinName string) error {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return err
	}
	for i, entry := range cart.Entries {
		if entry.CruiseID == cruiseID && entry.CabinName == cabinName {
			cart.Entries = append(cart.Entries[:i], cart.Entries[i+1:]...)
			return s.putCart(ctx, cart)
		}
	}
	return store.NotFoundError("cabin %s on cruise %s in cart", cabinName, cruiseID)
}

// GetCart returns a user's cart; an empty cart if none exists.
func (s *Store) GetCart(ctx context.Context, userID string) (*store.Cart, error) {
	data, err := s.client.Get(ctx, s.cartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &store.Cart{UserID: userID}, nil
	}
	if err != nil {
		return nil, store.UnavailableError(err, "get cart of %s", userID)
	}
	var cart store.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, store.UnavailableError(err, "decode cart of %s", userID)
	}
	return &cart, nil
}

func (s *Store) putCart(ctx context.Context, cart *store.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return store.UnavailableError(err, "encode cart of %s", cart.UserID)
	}
	if err := s.client.Set(ctx, s.cartKey(cart.UserID), data, 0).Err(); err != nil {
		return store.UnavailableError(err, "put cart of %s", cart.UserID)
	}
	return nil
}

// GetOrders returns a user's orders, newest first.
func (s *Store) GetOrders(ctx context.Context, userID string) ([]store.Order, error) {
	items, err := s.client.LRange(ctx, s.ordersKey(userID), 0, -1).Result()
	if err != nil {
		return nil, store.UnavailableError(err, "list orders of %s", userID)
	}
	orders := make([]store.Order, 0, len(items))
	for _, item := range items {
		var order store.Order
		if err := json.Unmarshal([]byte(item), &order); err != nil {
			return nil, store.UnavailableError(err, "decode order of %s", userID)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// SaveOrder persists an order at the head of the user's order list.
func (s *Store) SaveOrder(ctx context.Context, order *store.Order) error {
	if order == nil || order.UserID == "" {
		return store.InvalidError("order needs a user ID")
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = s.now().UTC()
	}
	data, err := json.Marshal(order)
	if err != nil {
		return store.UnavailableError(err, "encode order %s", order.ID)
	}
	if err := s.client.LPush(ctx, s.ordersKey(order.UserID), data).Err(); err != nil {
		return store.UnavailableError(err, "save order %s", order.ID)
	}
	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
