//
// Tencent is pleased to support the open source community by making trpc-cruise-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-cruise-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package cruise implements the cruise booking conversation graph: intent
// routing, catalog search, a tool-driven assistant loop, and the
// human-confirmed payment flow.
package cruise

import (
	"reflect"

	"trpc.group/trpc-go/trpc-cruise-agent-go/graph"
	"trpc.group/trpc-go/trpc-cruise-agent-go/model"
	"trpc.group/trpc-go/trpc-cruise-agent-go/store"
)

// Conversation state keys.
const (
	// KeyMessages is the append-only conversation history.
	KeyMessages = graph.StateKeyMessages
	// KeyAgentRouting is the top-level router's scratch label.
	KeyAgentRouting = "agent_routing"
	// KeyFuncRouting is the cruise router's scratch label.
	KeyFuncRouting = "func_routing"
	// KeySearchCriteria accumulates search preferences across turns.
	KeySearchCriteria = "search_criteria"
	// KeyListCruises is the latest search result set.
	KeyListCruises = "list_cruises"
	// KeyListCabins is the latest cabin listing.
	KeyListCabins = "list_cabins"
	// KeyCurrentCruiseID is the cruise the conversation is focused on.
	KeyCurrentCruiseID = "current_cruise_id"
	// KeyCurrentCabin is the cabin the conversation is focused on.
	KeyCurrentCabin = "current_cabin"
	// KeyAction tells the frontend what the last turn did.
	KeyAction = "action"
	// KeyCurrency is the pricing currency for this thread.
	KeyCurrency = "currency"
	// KeyUserID identifies the user for cart and order operations.
	KeyUserID = "user_id"
	// KeyLocale is the language detected for this turn.
	KeyLocale = "locale"
	// KeyPendingOrder carries the order built from passenger details until
	// it is persisted.
	KeyPendingOrder = "pending_order"
)

// Frontend actions reported through KeyAction.
const (
	ActionListCabin  = "list_cabin"
	ActionAddCart    = "add_cart"
	ActionRemoveCart = "remove_cart"
	ActionShowCabin  = "show_cabin"
	ActionOrderSaved = "order_saved"
)

// CriteriaReducer overlays new search criteria on the accumulated ones,
// field-wise: set fields win, unset fields keep their previous value. A nil
// *SearchCriteria update clears the whole record; nil-means-unchanged only
// applies to individual fields inside a non-nil update.
func CriteriaReducer(existing, update any) any {
	current, _ := existing.(*store.SearchCriteria)
	incoming, ok := update.(*store.SearchCriteria)
	if !ok {
		return update
	}
	if incoming == nil {
		return (*store.SearchCriteria)(nil)
	}
	return current.Merge(incoming)
}

// Schema returns the state schema of the cruise conversation graph.
func Schema() *graph.StateSchema {
	stringField := func() graph.StateField {
		return graph.StateField{
			Type:    reflect.TypeOf(""),
			Reducer: graph.DefaultReducer,
			Default: func() any { return "" },
		}
	}
	return graph.NewStateSchema().
		AddField(KeyMessages, graph.StateField{
			Type:    reflect.TypeOf([]model.Message{}),
			Reducer: graph.MessageReducer,
			Default: func() any { return []model.Message{} },
		}).
		AddField(KeyAgentRouting, stringField()).
		AddField(KeyFuncRouting, stringField()).
		AddField(KeySearchCriteria, graph.StateField{
			Type:    reflect.TypeOf(&store.SearchCriteria{}),
			Reducer: CriteriaReducer,
		}).
		AddField(KeyListCruises, graph.StateField{
			Type:    reflect.TypeOf([]store.Cruise{}),
			Reducer: graph.ReplaceReducer,
			Default: func() any { return []store.Cruise{} },
		}).
		AddField(KeyListCabins, graph.StateField{
			Type:    reflect.TypeOf([]store.Cabin{}),
			Reducer: graph.ReplaceReducer,
			Default: func() any { return []store.Cabin{} },
		}).
		AddField(KeyCurrentCruiseID, stringField()).
		AddField(KeyCurrentCabin, stringField()).
		AddField(KeyAction, stringField()).
		AddField(KeyCurrency, graph.StateField{
			Type:    reflect.TypeOf(""),
			Reducer: graph.DefaultReducer,
			Default: func() any { return "USD" },
		}).
		AddField(KeyUserID, stringField()).
		AddField(KeyLocale, stringField()).
		AddField(KeyPendingOrder, graph.StateField{
			Type:    reflect.TypeOf(&store.Order{}),
			Reducer: graph.DefaultReducer,
		})
}

// stateString reads a string state value, tolerating absence.
func stateString(state graph.State, key string) string {
	s, _ := state[key].(string)
	return s
}
