//
// Tencent is pleased to support the open source community by making trpc-cruise-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-cruise-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package store defines the cruise catalog, cart and order contracts plus the
// domain records they exchange. Sail dates are ISO "2006-01-02" strings and
// compare correctly as plain strings.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SearchLimit caps the number of cruises a search returns.
const SearchLimit = 5

// DateLayout is the wire format for sail dates.
const DateLayout = "2006-01-02"

// PortCall is one stop on a cruise itinerary.
type PortCall struct {
	PortName    string `json:"portName"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date,omitempty"`
}

// Cruise is a sailing in the catalog.
type Cruise struct {
	ID                 string     `json:"id"`
	Title              string     `json:"name"`
	Destination        string     `json:"destination"`
	EmbarkationPort    string     `json:"embarkationPort"`
	DisembarkationPort string     `json:"disembarkationPort"`
	SailStartDate      string     `json:"sailStartDate"`
	SailEndDate        string     `json:"sailEndDate"`
	Duration           int        `json:"duration"`
	Price              float64    `json:"price,omitempty"`
	OriginalPrice      float64    `json:"originalPrice,omitempty"`
	Currency           string     `json:"currency,omitempty"`
	SuiteName          string     `json:"suiteName,omitempty"`
	Discounted         bool       `json:"discounted,omitempty"`
	Itinerary          []PortCall `json:"itinerary,omitempty"`
	ImageURL           string     `json:"imageUrl,omitempty"`
	Description        string     `json:"description,omitempty"`
}

// Cabin is a bookable suite on a cruise.
type Cabin struct {
	CruiseID      string  `json:"cruiseId"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	Fare          string  `json:"fare,omitempty"`
	Price         float64 `json:"price"`
	OriginalPrice float64 `json:"originalPrice,omitempty"`
	PriceStatus   string  `json:"priceStatus,omitempty"`
	URL           string  `json:"url,omitempty"`
}

// SearchCriteria accumulates search preferences across conversation turns.
// Every field is optional; nil means "no constraint". Field names follow the
// public chat API.
type SearchCriteria struct {
	EmbarkationPort    []string `json:"embarkationPort,omitempty"`
	DisembarkationPort []string `json:"disembarkationPort,omitempty"`
	Destinations       []string `json:"destinations,omitempty"`
	IgnoreDestinations []string `json:"ignore_destinations,omitempty"`
	MinDuration        *int     `json:"minDuration,omitempty"`
	MaxDuration        *int     `json:"maxDuration,omitempty"`
	MinSailStartDate   *string  `json:"minSailStartDate,omitempty"`
	MaxSailStartDate   *string  `json:"maxSailStartDate,omitempty"`
	MinSailEndDate     *string  `json:"minSailEndDate,omitempty"`
	MaxSailEndDate     *string  `json:"maxSailEndDate,omitempty"`
	MinPrice           *float64 `json:"minPrice,omitempty"`
	MaxPrice           *float64 `json:"maxPrice,omitempty"`
	RoundTrip          *bool    `json:"round_trip,omitempty"`
	PriceDiscount      *bool    `json:"price_discount,omitempty"`
}

// Merge overlays update on c: fields the update sets replace the current
// values, fields it leaves nil keep theirs. Criteria therefore accumulate
// across turns instead of resetting on every search.
func (c *SearchCriteria) Merge(update *SearchCriteria) *SearchCriteria {
	if c == nil {
		c = &SearchCriteria{}
	}
	merged := *c
	if update == nil {
		return &merged
	}
	if len(update.EmbarkationPort) > 0 {
		merged.EmbarkationPort = update.EmbarkationPort
	}
	if len(update.DisembarkationPort) > 0 {
		merged.DisembarkationPort = update.DisembarkationPort
	}
	if len(update.Destinations) > 0 {
		merged.Destinations = update.Destinations
	}
	if len(update.IgnoreDestinations) > 0 {
		merged.IgnoreDestinations = update.IgnoreDestinations
	}
	if update.MinDuration != nil {
		merged.MinDuration = update.MinDuration
	}
	if update.MaxDuration != nil {
		merged.MaxDuration = update.MaxDuration
	}
	if update.MinSailStartDate != nil {
		merged.MinSailStartDate = update.MinSailStartDate
	}
	if update.MaxSailStartDate != nil {
		merged.MaxSailStartDate = update.MaxSailStartDate
	}
	if update.MinSailEndDate != nil {
		merged.MinSailEndDate = update.MinSailEndDate
	}
	if update.MaxSailEndDate != nil {
		merged.MaxSailEndDate = update.MaxSailEndDate
	}
	if update.MinPrice != nil {
		merged.MinPrice = update.MinPrice
	}
	if update.MaxPrice != nil {
		merged.MaxPrice = update.MaxPrice
	}
	if update.RoundTrip != nil {
		merged.RoundTrip = update.RoundTrip
	}
	if update.PriceDiscount != nil {
		merged.PriceDiscount = update.PriceDiscount
	}
	return &merged
}

// CartEntry is one cabin held in a user's cart.
type CartEntry struct {
	CruiseID  string    `json:"cruiseId"`
	CabinName string    `json:"cabinName"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency,omitempty"`
	AddedAt   time.Time `json:"addedAt"`
}

// Cart holds a user's pending cabin selections.
type Cart struct {
	UserID  string      `json:"userId"`
	Entries []CartEntry `json:"entries"`
}

// ContactInfo identifies the booking passenger.
type ContactInfo struct {
	Title     string `json:"title,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// Complete reports whether the details required to place an order are all
// present.
func (c ContactInfo) Complete() bool {
	return c.FirstName != "" && c.LastName != "" && c.Email != "" && c.Phone != ""
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

// Order lifecycle states.
const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRefunded  OrderStatus = "refunded"
)

// Order is a placed booking.
type Order struct {
	ID            string      `json:"id"`
	UserID        string      `json:"userId"`
	Contact       ContactInfo `json:"contact"`
	Items         []CartEntry `json:"items"`
	TotalAmount   float64     `json:"totalAmount"`
	Currency      string      `json:"currency,omitempty"`
	Status        OrderStatus `json:"status"`
	PaymentMethod string      `json:"paymentMethod,omitempty"`
	TransactionID string      `json:"transactionId,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// ErrorKind discriminates store failures.
type ErrorKind string

// Store failure kinds.
const (
	KindNotFound    ErrorKind = "not_found"
	KindUnavailable ErrorKind = "unavailable"
	KindInvalid     ErrorKind = "invalid"
)

// Error is a typed store failure.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("store: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("store: %s: %s", e.Kind, e.Msg)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// NotFoundError creates a not-found failure.
func NotFoundError(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// UnavailableError creates an unavailable failure wrapping its cause.
func UnavailableError(err error, format string, args ...any) *Error {
	return &Error{Kind: KindUnavailable, Msg: fmt.Sprintf(format, args...), Err: err}
}

// InvalidError creates an invalid-argument failure.
func InvalidError(format string, args ...any) *Error {
	return &Error{Kind: KindInvalid, Msg: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err is a not-found store failure.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindNotFound
}

// Store is the data access contract the conversation graph depends on.
type Store interface {
	// Search returns cruises matching the criteria, sorted by sail start
	// date, at most SearchLimit results.
	Search(ctx context.Context, criteria *SearchCriteria) ([]Cruise, error)
	// GetCruise returns the cruise with the given ID.
	GetCruise(ctx context.Context, cruiseID string) (*Cruise, error)
	// ListCabins returns the bookable cabins of a cruise.
	ListCabins(ctx context.Context, cruiseID string) ([]Cabin, error)
	// AddToCart puts a cabin into a user's cart.
	AddToCart(ctx context.Context, userID string, entry CartEntry) error
	// RemoveFromCart removes a cabin from a user's cart.
	RemoveFromCart(ctx context.Context, userID, cruiseID, cabinName string) error
	// GetCart returns a user's cart; an empty cart if none exists.
	GetCart(ctx context.Context, userID string) (*Cart, error)
	// GetOrders returns a user's orders, newest first.
	GetOrders(ctx context.Context, userID string) ([]Order, error)
	// SaveOrder persists an order.
	SaveOrder(ctx context.Context, order *Order) error
	// Close releases backend resources.
	Close() error
}
