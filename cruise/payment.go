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
	"fmt"
	"strings"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-cruise-agent-go/classify"
	"trpc.group/trpc-go/trpc-cruise-agent-go/graph"
	"trpc.group/trpc-go/trpc-cruise-agent-go/log"
	"trpc.group/trpc-go/trpc-cruise-agent-go/model"
	"trpc.group/trpc-go/trpc-cruise-agent-go/store"
)

// Await keys of the payment flow.
const (
	awaitPaymentConfirm = "payment_confirm"
	awaitPassengerInfo  = "passenger_details"
	awaitPaymentRetry   = "payment_retry"
)

// pendingPaymentCalls finds the assistant message that requested payment and
// returns its tool calls that no tool message has answered yet. Empty once
// every call is answered, so re-entering the payment node after a resume
// never appends duplicate replies.
func pendingPaymentCalls(state graph.State) []model.ToolCall {
	msgs, _ := state[KeyMessages].([]model.Message)
	answered := make(map[string]bool)
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		if msg.Role == model.RoleTool {
			answered[msg.ToolID] = true
			continue
		}
		if msg.Role != model.RoleAssistant || len(msg.ToolCalls) == 0 {
			continue
		}
		requestsPayment := false
		var pending []model.ToolCall
		for _, call := range msg.ToolCalls {
			if call.Function.Name == toolStartPayment {
				requestsPayment = true
			}
			if !answered[call.ID] {
				pending = append(pending, call)
			}
		}
		if !requestsPayment {
			return nil
		}
		return pending
	}
	return nil
}

// paymentNode answers every tool call of the payment request, so the history
// stays well-formed: sibling calls run for real, start_payment gets a
// synthetic reply. It then suspends for the user's confirmation. Yes proceeds
// to passenger details; anything else declines.
func (a *Agent) paymentNode(ctx context.Context, state graph.State) (any, error) {
	update := graph.State{}
	var toolCallID string
	if pending := pendingPaymentCalls(state); len(pending) > 0 {
		tools := a.toolsFor(state)
		var replies []model.Message
		for _, call := range pending {
			if call.Function.Name == toolStartPayment {
				toolCallID = call.ID
				replies = append(replies, model.NewToolMessage(call.ID, toolStartPayment, "Payment flow started."))
				continue
			}
			content, toolUpdate := a.runTool(ctx, tools, call)
			replies = append(replies, model.NewToolMessage(call.ID, call.Function.Name, content))
			for k, v := range toolUpdate {
				update[k] = v
			}
		}
		update[KeyMessages] = replies
	}

	answer, intr := graph.AwaitHuman(state, awaitPaymentConfirm, "")
	if intr != nil {
		intr.Prompt = a.paymentPrompt(ctx, state)
		intr.ToolCallID = toolCallID
		intr.Update = update
		return intr, nil
	}

	update[KeyMessages] = append(messagesOf(update), model.NewUserMessage(answer))
	if classify.ResolveYesNo(ctx, a.classifier, answer) != classify.Yes {
		// Declined: back to the assistant flow, nothing charged.
		update[KeyAction] = ""
		return &graph.Command{Update: update, GoTo: nodeCruiseAssistant}, nil
	}
	return &graph.Command{Update: update, GoTo: nodePassengerInfo}, nil
}

// paymentPrompt renders the confirmation question with the cart total when
// the cart is reachable.
func (a *Agent) paymentPrompt(ctx context.Context, state graph.State) string {
	cart, err := a.store.GetCart(ctx, stateString(state, KeyUserID))
	if err != nil || len(cart.Entries) == 0 {
		return "You are about to pay for the cabins in your cart. Shall I proceed?"
	}
	var total float64
	names := make([]string, 0, len(cart.Entries))
	for _, entry := range cart.Entries {
		total += entry.Price
		names = append(names, entry.CabinName)
	}
	return fmt.Sprintf("You are about to pay %.2f %s for: %s. Shall I proceed?",
		total, stateString(state, KeyCurrency), strings.Join(names, ", "))
}

// passengerInfoNode suspends for passenger details, extracts them into a
// contact record, and builds the pending order. Incomplete details re-ask
// with the missing fields named. The answer enters the history only when it
// was freshly consumed; a replay after a save-order retry must not duplicate
// the passenger's message.
func (a *Agent) passengerInfoNode(ctx context.Context, state graph.State) (any, error) {
	replayed := graph.Replayed(state, awaitPassengerInfo)
	answer, intr := graph.AwaitHuman(state, awaitPassengerInfo, passengerDetailsPrompt)
	if intr != nil {
		return intr, nil
	}
	answerUpdate := graph.State{}
	if !replayed {
		answerUpdate[KeyMessages] = []model.Message{model.NewUserMessage(answer)}
	}

	var contact store.ContactInfo
	if err := a.classifier.Extract(ctx, passengerExtractInstruction, answer, &contact); err != nil {
		log.Errorf("passenger extraction failed: %v", err)
		graph.ClearUsed(state, awaitPassengerInfo)
		return &graph.Interrupt{
			Key:    awaitPassengerInfo,
			Prompt: passengerDetailsPrompt,
			Update: answerUpdate,
		}, nil
	}
	if missing := missingContactFields(contact); len(missing) > 0 {
		graph.ClearUsed(state, awaitPassengerInfo)
		return &graph.Interrupt{
			Key: awaitPassengerInfo,
			Prompt: fmt.Sprintf("I still need the passenger's %s to complete the booking.",
				strings.Join(missing, ", ")),
			Update: answerUpdate,
		}, nil
	}

	userID := stateString(state, KeyUserID)
	cart, err := a.store.GetCart(ctx, userID)
	if err != nil {
		log.Errorf("load cart for order: %v", err)
		update := graph.State{
			KeyMessages: append(messagesOf(answerUpdate), model.NewAssistantMessage(apologyMessage)),
			KeyAction:   "",
		}
		return &graph.Command{Update: update, GoTo: graph.End}, nil
	}

	var total float64
	for _, entry := range cart.Entries {
		total += entry.Price
	}
	order := &store.Order{
		ID:          "ORD-" + uuid.NewString(),
		UserID:      userID,
		Contact:     contact,
		Items:       cart.Entries,
		TotalAmount: total,
		Currency:    stateString(state, KeyCurrency),
		Status:      store.OrderStatusPaid,
	}
	answerUpdate[KeyPendingOrder] = order
	return &graph.Command{Update: answerUpdate, GoTo: nodeSaveOrder}, nil
}

// missingContactFields names the details still needed to place an order.
func missingContactFields(contact store.ContactInfo) []string {
	var missing []string
	if contact.FirstName == "" || contact.LastName == "" {
		missing = append(missing, "full name")
	}
	if contact.Email == "" {
		missing = append(missing, "email address")
	}
	if contact.Phone == "" {
		missing = append(missing, "phone number")
	}
	return missing
}

// saveOrderNode persists the pending order. Success confirms and empties the
// ordered cabins from the cart; a store failure enters the retry branch with
// nothing persisted about the order.
func (a *Agent) saveOrderNode(ctx context.Context, state graph.State) (any, error) {
	order, _ := state[KeyPendingOrder].(*store.Order)
	if order == nil {
		return nil, fmt.Errorf("save order reached without a pending order")
	}
	if err := a.store.SaveOrder(ctx, order); err != nil {
		log.Errorf("save order %s: %v", order.ID, err)
		return &graph.Command{GoTo: nodePaymentFailed}, nil
	}
	for _, item := range order.Items {
		if err := a.store.RemoveFromCart(ctx, order.UserID, item.CruiseID, item.CabinName); err != nil {
			log.Warnf("clear cart entry %s/%s: %v", item.CruiseID, item.CabinName, err)
		}
	}
	confirmation := fmt.Sprintf("Your order is confirmed. Total: %.2f %s for %d cabin(s). A confirmation has been sent to %s.",
		order.TotalAmount, order.Currency, len(order.Items), order.Contact.Email)
	return &graph.Command{
		Update: graph.State{
			KeyMessages:     []model.Message{model.NewAssistantMessage(confirmation)},
			KeyAction:       ActionOrderSaved,
			KeyPendingOrder: (*store.Order)(nil),
		},
		GoTo: graph.End,
	}, nil
}

// paymentFailedNode suspends asking whether to retry saving the order. Yes
// loops back to passenger info, whose memoized details carry over; anything
// else returns to the assistant flow with no order persisted.
func (a *Agent) paymentFailedNode(ctx context.Context, state graph.State) (any, error) {
	answer, intr := graph.AwaitHuman(state, awaitPaymentRetry,
		"I could not save your order. Would you like me to try again?")
	if intr != nil {
		return intr, nil
	}

	update := graph.State{
		KeyMessages: []model.Message{model.NewUserMessage(answer)},
	}
	if classify.ResolveYesNo(ctx, a.classifier, answer) == classify.Yes {
		// Forget this answer so another failure asks again instead of
		// looping on the memoized yes.
		graph.ClearUsed(state, awaitPaymentRetry)
		return &graph.Command{Update: update, GoTo: nodePassengerInfo}, nil
	}
	update[KeyMessages] = append(messagesOf(update),
		model.NewAssistantMessage("Understood, your order was not placed and nothing was charged."))
	update[KeyAction] = ""
	update[KeyPendingOrder] = (*store.Order)(nil)
	return &graph.Command{Update: update, GoTo: nodeCruiseAssistant}, nil
}

// messagesOf reads the messages slice already staged in an update.
func messagesOf(update graph.State) []model.Message {
	msgs, _ := update[KeyMessages].([]model.Message)
	return msgs
}
