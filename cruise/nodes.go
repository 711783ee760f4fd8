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
	"errors"
	"fmt"
	"time"

	"trpc.group/trpc-go/trpc-cruise-agent-go/classify"
	"trpc.group/trpc-go/trpc-cruise-agent-go/graph"
	"trpc.group/trpc-go/trpc-cruise-agent-go/log"
	"trpc.group/trpc-go/trpc-cruise-agent-go/model"
	"trpc.group/trpc-go/trpc-cruise-agent-go/store"
	"trpc.group/trpc-go/trpc-cruise-agent-go/tool"
)

// Agent holds the collaborators of the cruise conversation graph. The graph
// itself is stateless; everything per-conversation lives in graph.State.
type Agent struct {
	model      model.Model
	classifier classify.Classifier
	store      store.Store
	now        func() time.Time
}

// Option configures an Agent.
type Option func(*Agent)

// WithClock overrides the time source used for date-sensitive prompts.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

// New creates a cruise agent over the given collaborators.
func New(m model.Model, c classify.Classifier, s store.Store, opts ...Option) *Agent {
	a := &Agent{model: m, classifier: c, store: s, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// lastUserMessage returns the content of the most recent user message.
func lastUserMessage(state graph.State) string {
	msgs, _ := state[KeyMessages].([]model.Message)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}

func lastMessage(state graph.State) (model.Message, bool) {
	msgs, _ := state[KeyMessages].([]model.Message)
	if len(msgs) == 0 {
		return model.Message{}, false
	}
	return msgs[len(msgs)-1], true
}

// classifyLabel classifies input into labels, passing an out-of-set answer
// through so the router reports it as a routing failure instead of silently
// picking a default.
func (a *Agent) classifyLabel(ctx context.Context, instruction, input string, labels []string) (string, error) {
	label, err := a.classifier.Classify(ctx, &classify.Request{
		Instruction: instruction,
		Input:       input,
		Labels:      labels,
	})
	if err != nil {
		var labelErr *classify.LabelError
		if errors.As(err, &labelErr) {
			return labelErr.Label, nil
		}
		return "", err
	}
	return label, nil
}

// detectLanguageNode sets the turn's locale once. A locale supplied with the
// request wins; detection failures fall back to English.
func (a *Agent) detectLanguageNode(ctx context.Context, state graph.State) (any, error) {
	if stateString(state, KeyLocale) != "" {
		return graph.State{}, nil
	}
	label, err := a.classifier.Classify(ctx, &classify.Request{
		Instruction: languageInstruction,
		Input:       lastUserMessage(state),
		Labels:      []string{"en", "es", "fr", "de", "zh", "ja", "vi", "other"},
	})
	if err != nil {
		log.Warnf("language detection failed: %v", err)
		label = "en"
	}
	return graph.State{KeyLocale: label}, nil
}

// supervisorNode routes the turn to the cruise flow, the general flow, or
// the context reset.
func (a *Agent) supervisorNode(ctx context.Context, state graph.State) (any, error) {
	label, err := a.classifyLabel(ctx, supervisorInstruction, lastUserMessage(state),
		[]string{routeCruise, routeGeneral, routeClear})
	if err != nil {
		return nil, fmt.Errorf("supervisor: %w", err)
	}
	return graph.State{KeyAgentRouting: label}, nil
}

// cruiseSupervisorNode routes within the cruise flow: criteria search vs.
// the tool-driven assistant.
func (a *Agent) cruiseSupervisorNode(ctx context.Context, state graph.State) (any, error) {
	label, err := a.classifyLabel(ctx, cruiseRouterInstruction, lastUserMessage(state),
		[]string{nodeCruiseSearch, nodeCruiseAssistant})
	if err != nil {
		return nil, fmt.Errorf("cruise supervisor: %w", err)
	}
	return graph.State{KeyFuncRouting: label}, nil
}

// generalNode answers off-topic questions with a plain model call.
func (a *Agent) generalNode(ctx context.Context, state graph.State) (any, error) {
	msgs, _ := state[KeyMessages].([]model.Message)
	rsp, err := a.model.GenerateContent(ctx, &model.Request{
		Messages: append([]model.Message{
			model.NewSystemMessage("You are a helpful assistant for a cruise booking service. Answer briefly."),
		}, msgs...),
	})
	if err != nil {
		log.Errorf("general node model call: %v", err)
		return graph.State{
			KeyMessages: []model.Message{model.NewAssistantMessage(apologyMessage)},
			KeyAction:   "",
		}, nil
	}
	return graph.State{
		KeyMessages: []model.Message{rsp.Message},
		KeyAction:   "",
	}, nil
}

// clearContextNode resets the conversation focus. The message history is
// append-only, so the reset is announced rather than erased.
func (a *Agent) clearContextNode(ctx context.Context, state graph.State) (any, error) {
	return graph.State{
		KeyMessages:        []model.Message{model.NewAssistantMessage("Your context is clear now.")},
		KeySearchCriteria:  (*store.SearchCriteria)(nil),
		KeyListCruises:     []store.Cruise{},
		KeyListCabins:      []store.Cabin{},
		KeyCurrentCruiseID: "",
		KeyCurrentCabin:    "",
		KeyPendingOrder:    (*store.Order)(nil),
		KeyAction:          "",
	}, nil
}

// cruiseSearchNode extracts search criteria from the turn, merges them into
// the accumulated preferences, queries the catalog, and summarizes the
// results. An empty result set asks the user to revise their criteria.
func (a *Agent) cruiseSearchNode(ctx context.Context, state graph.State) (any, error) {
	existing, _ := state[KeySearchCriteria].(*store.SearchCriteria)
	today := a.now().UTC().Format(store.DateLayout)

	var extracted store.SearchCriteria
	if err := a.classifier.Extract(ctx, extractInstruction(existing, today),
		lastUserMessage(state), &extracted); err != nil {
		log.Errorf("criteria extraction failed: %v", err)
		return graph.State{
			KeyMessages: []model.Message{model.NewAssistantMessage(apologyMessage)},
			KeyAction:   "",
		}, nil
	}
	merged := existing.Merge(&extracted)

	cruises, err := a.store.Search(ctx, merged)
	if err != nil {
		log.Errorf("cruise search failed: %v", err)
		return graph.State{
			KeyMessages:       []model.Message{model.NewAssistantMessage(apologyMessage)},
			KeySearchCriteria: merged,
			KeyAction:         "",
		}, nil
	}

	return graph.State{
		KeyMessages:       []model.Message{a.summarizeSearch(ctx, merged, cruises)},
		KeySearchCriteria: merged,
		KeyListCruises:    cruises,
		KeyListCabins:     []store.Cabin{},
		KeyAction:         "",
	}, nil
}

// summarizeSearch turns a result set into the user-facing reply.
func (a *Agent) summarizeSearch(ctx context.Context, criteria *store.SearchCriteria, cruises []store.Cruise) model.Message {
	criteriaJSON, _ := json.Marshal(criteria)
	cruisesJSON, _ := json.Marshal(cruises)
	rsp, err := a.model.GenerateContent(ctx, &model.Request{
		Messages: []model.Message{
			model.NewSystemMessage(searchSummaryInstruction),
			model.NewAssistantMessage(fmt.Sprintf("Result cruises found: %s", cruisesJSON)),
			model.NewUserMessage(fmt.Sprintf("User preference: %s", criteriaJSON)),
		},
	})
	if err != nil {
		log.Errorf("search summary model call: %v", err)
		if len(cruises) == 0 {
			return model.NewAssistantMessage(
				"I could not find any cruises matching your preferences. Could you revise your criteria?")
		}
		return model.NewAssistantMessage(fmt.Sprintf("I found %d cruises matching your preferences.", len(cruises)))
	}
	return rsp.Message
}

// assistantNode runs the tool-equipped assistant model over the history.
func (a *Agent) assistantNode(ctx context.Context, state graph.State) (any, error) {
	msgs, _ := state[KeyMessages].([]model.Message)
	system := assistantInstruction(
		stateString(state, KeyCurrentCruiseID),
		stateString(state, KeyCurrentCabin),
		stateString(state, KeyLocale),
	)
	rsp, err := a.model.GenerateContent(ctx, &model.Request{
		Messages: append([]model.Message{model.NewSystemMessage(system)}, msgs...),
		Tools:    a.toolsFor(state),
	})
	if err != nil {
		log.Errorf("assistant model call: %v", err)
		return graph.State{
			KeyMessages: []model.Message{model.NewAssistantMessage(apologyMessage)},
			KeyAction:   "",
		}, nil
	}
	return graph.State{KeyMessages: []model.Message{rsp.Message}}, nil
}

// Assistant routing labels.
const (
	labelPayment = "payment"
	labelTools   = "tools"
	labelEnd     = "end"
)

// assistantRoute inspects the assistant's last message: a start_payment call
// enters the payment flow, other tool calls run the tool loop, no calls end
// the turn.
func assistantRoute(ctx context.Context, state graph.State) (string, error) {
	last, ok := lastMessage(state)
	if !ok || last.Role != model.RoleAssistant || len(last.ToolCalls) == 0 {
		return labelEnd, nil
	}
	for _, call := range last.ToolCalls {
		if call.Function.Name == toolStartPayment {
			return labelPayment, nil
		}
	}
	return labelTools, nil
}

// toolsNode executes the assistant's tool calls in order, appending one tool
// message per call and merging the state updates the tools request. A failed
// tool becomes an apologetic tool message; the turn keeps going.
func (a *Agent) toolsNode(ctx context.Context, state graph.State) (any, error) {
	last, ok := lastMessage(state)
	if !ok || len(last.ToolCalls) == 0 {
		return nil, errors.New("tools node reached without tool calls")
	}
	tools := a.toolsFor(state)
	update := graph.State{}
	var replies []model.Message
	for _, call := range last.ToolCalls {
		name := call.Function.Name
		content, toolUpdate := a.runTool(ctx, tools, call)
		replies = append(replies, model.NewToolMessage(call.ID, name, content))
		for k, v := range toolUpdate {
			update[k] = v
		}
	}
	update[KeyMessages] = replies
	return update, nil
}

// runTool executes one tool call, recovering failures locally.
func (a *Agent) runTool(ctx context.Context, tools map[string]tool.Tool, call model.ToolCall) (string, graph.State) {
	t, ok := tools[call.Function.Name]
	if !ok {
		log.Warnf("assistant requested unknown tool %s", call.Function.Name)
		return fmt.Sprintf("Tool %s is not available.", call.Function.Name), nil
	}
	callable, ok := t.(tool.CallableTool)
	if !ok {
		return fmt.Sprintf("Tool %s is not callable.", call.Function.Name), nil
	}
	result, err := callable.Call(ctx, call.Function.Arguments)
	if err != nil {
		log.Errorf("tool %s failed: %v", call.Function.Name, err)
		return "The operation could not be completed. Apologize to the user and suggest trying again.", nil
	}
	out, ok := result.(toolOutput)
	if !ok {
		data, err := json.Marshal(result)
		if err != nil {
			return "The operation produced an unreadable result.", nil
		}
		return string(data), nil
	}
	return out.Message, out.update
}
