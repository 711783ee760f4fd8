//
// Tencent is pleased to support the open source community by making trpc-cruise-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-cruise-agent-go is licensed under the Apache License Version 2.0.
//
//

package cruise

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"trpc.group/trpc-go/trpc-cruise-agent-go/graph"
	"trpc.group/trpc-go/trpc-cruise-agent-go/store"
	"trpc.group/trpc-go/trpc-cruise-agent-go/tool"
	"trpc.group/trpc-go/trpc-cruise-agent-go/tool/function"
)

// Domain tool names offered to the assistant model.
const (
	toolCruiseDetail        = "cruise_detail"
	toolListCabins          = "list_cabins"
	toolAddCabinToCart      = "add_cabin_to_cart"
	toolRemoveCabinFromCart = "remove_cabin_from_cart"
	toolGetCart             = "get_cart"
	toolGetOrders           = "get_orders"
	toolStartPayment        = "start_payment"
)

// toolOutput is what every domain tool returns. Message becomes the tool
// message content; update is the state change the tool requests.
type toolOutput struct {
	Message string `json:"message"`

	update graph.State
}

type cruiseArgs struct {
	// CruiseID defaults to the current cruise when omitted.
	CruiseID string `json:"cruise_id,omitempty"`
}

type cabinArgs struct {
	CruiseID  string `json:"cruise_id,omitempty"`
	CabinName string `json:"cabin_name,omitempty"`
}

type emptyArgs struct{}

// toolsFor builds the assistant's tool set for one node execution. Each tool
// closes over the conversation state so defaults (current cruise, current
// cabin, user) resolve at call time.
func (a *Agent) toolsFor(state graph.State) map[string]tool.Tool {
	currentCruise := stateString(state, KeyCurrentCruiseID)
	currentCabin := stateString(state, KeyCurrentCabin)
	userID := stateString(state, KeyUserID)
	currency := stateString(state, KeyCurrency)

	tools := map[string]tool.Tool{}

	tools[toolCruiseDetail] = function.NewFunctionTool(
		func(ctx context.Context, args cruiseArgs) (toolOutput, error) {
			cruiseID := args.CruiseID
			if cruiseID == "" {
				cruiseID = currentCruise
			}
			if cruiseID == "" {
				return toolOutput{Message: "No cruise is selected yet. Ask the user which cruise they mean."}, nil
			}
			cruise, err := a.store.GetCruise(ctx, cruiseID)
			if err != nil {
				return toolOutput{}, err
			}
			detail, err := json.Marshal(cruise)
			if err != nil {
				return toolOutput{}, err
			}
			return toolOutput{
				Message: string(detail),
				update: graph.State{
					KeyCurrentCruiseID: cruiseID,
					KeyAction:          "",
				},
			}, nil
		},
		function.WithName(toolCruiseDetail),
		function.WithDescription("Get the details of the current cruise such as price, duration and stops, excluding cabins."),
	)

	tools[toolListCabins] = function.NewFunctionTool(
		func(ctx context.Context, args cruiseArgs) (toolOutput, error) {
			cruiseID := args.CruiseID
			if cruiseID == "" {
				cruiseID = currentCruise
			}
			if cruiseID == "" {
				return toolOutput{Message: "No cruise is selected yet. Ask the user which cruise they mean."}, nil
			}
			cabins, err := a.store.ListCabins(ctx, cruiseID)
			if err != nil {
				return toolOutput{}, err
			}
			listing, err := json.Marshal(cabins)
			if err != nil {
				return toolOutput{}, err
			}
			return toolOutput{
				Message: string(listing),
				update: graph.State{
					KeyCurrentCruiseID: cruiseID,
					KeyListCabins:      cabins,
					KeyListCruises:     []store.Cruise{},
					KeyAction:          ActionListCabin,
				},
			}, nil
		},
		function.WithName(toolListCabins),
		function.WithDescription("List the cabins of the current cruise."),
	)

	tools[toolAddCabinToCart] = function.NewFunctionTool(
		func(ctx context.Context, args cabinArgs) (toolOutput, error) {
			cruiseID, cabinName := args.CruiseID, args.CabinName
			if cruiseID == "" {
				cruiseID = currentCruise
			}
			if cabinName == "" {
				cabinName = currentCabin
			}
			if cruiseID == "" || cabinName == "" {
				return toolOutput{Message: "The cruise or cabin is unclear. Ask the user to specify which cabin to book."}, nil
			}
			price, err := a.cabinPrice(ctx, cruiseID, cabinName)
			if err != nil {
				return toolOutput{}, err
			}
			entry := store.CartEntry{
				CruiseID:  cruiseID,
				CabinName: cabinName,
				Price:     price,
				Currency:  currency,
				AddedAt:   time.Now().UTC(),
			}
			if err := a.store.AddToCart(ctx, userID, entry); err != nil {
				return toolOutput{}, err
			}
			return toolOutput{
				Message: "Cabin added to cart successfully",
				update: graph.State{
					KeyCurrentCruiseID: cruiseID,
					KeyCurrentCabin:    cabinName,
					KeyAction:          ActionAddCart,
				},
			}, nil
		},
		function.WithName(toolAddCabinToCart),
		function.WithDescription("Add the current cabin to the user's cart."),
	)

	tools[toolRemoveCabinFromCart] = function.NewFunctionTool(
		func(ctx context.Context, args cabinArgs) (toolOutput, error) {
			cruiseID, cabinName := args.CruiseID, args.CabinName
			if cruiseID == "" {
				cruiseID = currentCruise
			}
			if cabinName == "" {
				cabinName = currentCabin
			}
			if err := a.store.RemoveFromCart(ctx, userID, cruiseID, cabinName); err != nil {
				if store.IsNotFound(err) {
					return toolOutput{Message: "That cabin is not in the cart."}, nil
				}
				return toolOutput{}, err
			}
			return toolOutput{
				Message: "Cabin successfully removed from cart",
				update:  graph.State{KeyAction: ActionRemoveCart},
			}, nil
		},
		function.WithName(toolRemoveCabinFromCart),
		function.WithDescription("Remove a cabin from the user's cart."),
	)

	tools[toolGetCart] = function.NewFunctionTool(
		func(ctx context.Context, args emptyArgs) (toolOutput, error) {
			cart, err := a.store.GetCart(ctx, userID)
			if err != nil {
				return toolOutput{}, err
			}
			content, err := json.Marshal(cart)
			if err != nil {
				return toolOutput{}, err
			}
			return toolOutput{
				Message: string(content),
				update:  graph.State{KeyAction: ActionShowCabin},
			}, nil
		},
		function.WithName(toolGetCart),
		function.WithDescription("Get the cabins currently in the user's cart."),
	)

	tools[toolGetOrders] = function.NewFunctionTool(
		func(ctx context.Context, args emptyArgs) (toolOutput, error) {
			orders, err := a.store.GetOrders(ctx, userID)
			if err != nil {
				return toolOutput{}, err
			}
			content, err := json.Marshal(orders)
			if err != nil {
				return toolOutput{}, err
			}
			return toolOutput{Message: string(content)}, nil
		},
		function.WithName(toolGetOrders),
		function.WithDescription("Get the user's order and payment history."),
	)

	tools[toolStartPayment] = function.NewFunctionTool(
		func(ctx context.Context, args emptyArgs) (toolOutput, error) {
			// The payment node intercepts this call before execution.
			return toolOutput{Message: "Payment flow started."}, nil
		},
		function.WithName(toolStartPayment),
		function.WithDescription("Start the payment flow for the user's cabin cart. Trigger whenever the user wants to pay."),
	)

	return tools
}

// cabinPrice resolves the price of a cabin on a cruise.
func (a *Agent) cabinPrice(ctx context.Context, cruiseID, cabinName string) (float64, error) {
	cabins, err := a.store.ListCabins(ctx, cruiseID)
	if err != nil {
		return 0, err
	}
	for _, cabin := range cabins {
		if cabin.Name == cabinName {
			return cabin.Price, nil
		}
	}
	return 0, fmt.Errorf("cabin %s not found on cruise %s", cabinName, cruiseID)
}
