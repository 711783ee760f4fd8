//
// Tencent is pleased to support the open source community by making trpc-cruise-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-cruise-agent-go is licensed under the Apache License Version 2.0.
//
//

package store

import (
	"sort"
	"strings"
)

// Match reports whether a cruise satisfies the search criteria. today is the
// ISO date used as the implicit lower bound on sail start when the criteria
// leave it open: past sailings never match.
//
// Both backends filter with this predicate so search semantics cannot drift
// between them.
func Match(criteria *SearchCriteria, cruise *Cruise, today string) bool {
	if criteria == nil {
		criteria = &SearchCriteria{}
	}

	minStart := today
	if criteria.MinSailStartDate != nil {
		minStart = *criteria.MinSailStartDate
	}
	if cruise.SailStartDate < minStart {
		return false
	}
	if criteria.MaxSailStartDate != nil && cruise.SailStartDate > *criteria.MaxSailStartDate {
		return false
	}
	if criteria.MinSailEndDate != nil && cruise.SailEndDate < *criteria.MinSailEndDate {
		return false
	}
	if criteria.MaxSailEndDate != nil && cruise.SailEndDate > *criteria.MaxSailEndDate {
		return false
	}

	if len(criteria.Destinations) > 0 && !matchesAnyPlace(cruise, criteria.Destinations) {
		return false
	}
	if len(criteria.EmbarkationPort) > 0 &&
		!containsFold(criteria.EmbarkationPort, cruise.EmbarkationPort) {
		return false
	}
	if len(criteria.DisembarkationPort) > 0 &&
		!containsFold(criteria.DisembarkationPort, cruise.DisembarkationPort) {
		return false
	}
	for _, ignored := range criteria.IgnoreDestinations {
		for _, stop := range cruise.Itinerary {
			if placeMatches(stop.PortName, ignored) {
				return false
			}
		}
	}

	if criteria.MinDuration != nil && cruise.Duration < *criteria.MinDuration {
		return false
	}
	if criteria.MaxDuration != nil && cruise.Duration > *criteria.MaxDuration {
		return false
	}
	if criteria.RoundTrip != nil && *criteria.RoundTrip &&
		!strings.EqualFold(cruise.EmbarkationPort, cruise.DisembarkationPort) {
		return false
	}
	if criteria.MinPrice != nil && cruise.Price < *criteria.MinPrice {
		return false
	}
	if criteria.MaxPrice != nil && cruise.Price > *criteria.MaxPrice {
		return false
	}
	if criteria.PriceDiscount != nil && *criteria.PriceDiscount && !cruise.Discounted {
		return false
	}
	return true
}

// SortAndLimit orders cruises by sail start date ascending and truncates to
// SearchLimit.
func SortAndLimit(cruises []Cruise) []Cruise {
	sort.SliceStable(cruises, func(i, j int) bool {
		return cruises[i].SailStartDate < cruises[j].SailStartDate
	})
	if len(cruises) > SearchLimit {
		cruises = cruises[:SearchLimit]
	}
	return cruises
}

// matchesAnyPlace reports whether any search term matches the cruise's
// destination, either terminal port, or any itinerary stop.
func matchesAnyPlace(cruise *Cruise, terms []string) bool {
	for _, term := range terms {
		if placeMatches(cruise.Destination, term) ||
			placeMatches(cruise.EmbarkationPort, term) ||
			placeMatches(cruise.DisembarkationPort, term) {
			return true
		}
		for _, stop := range cruise.Itinerary {
			if placeMatches(stop.PortName, term) {
				return true
			}
		}
	}
	return false
}

// placeMatches is a case-insensitive substring match, mirroring how users
// name places ("Tokyo" should match "Tokyo (Yokohama)").
func placeMatches(place, term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(place), strings.ToLower(term))
}

// containsFold reports whether list contains s, ignoring case.
func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), s) {
			return true
		}
	}
	return false
}
