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

	"trpc.group/trpc-go/trpc-cruise-agent-go/graph"
)

// Node identifiers of the cruise conversation graph.
const (
	nodeDetectLanguage   = "detect_language"
	nodeSupervisor       = "supervisor"
	nodeGeneral          = "general_node"
	nodeClearContext     = "clear_context"
	nodeCruiseSupervisor = "cruise_supervisor"
	nodeCruiseSearch     = "cruise_search"
	nodeCruiseAssistant  = "cruise_assistant"
	nodeTools            = "tools"
	nodePayment          = "payment"
	nodePassengerInfo    = "passenger_info"
	nodeSaveOrder        = "save_order"
	nodePaymentFailed    = "payment_failed"
)

// Top-level routing labels produced by the supervisor.
const (
	routeCruise  = "cruise_node"
	routeGeneral = "general_node"
	routeClear   = "clear_context"
)

// BuildGraph compiles the cruise conversation graph.
func (a *Agent) BuildGraph() (*graph.Graph, error) {
	sg := graph.NewStateGraph(Schema())

	sg.AddNode(nodeDetectLanguage, a.detectLanguageNode,
		graph.WithDescription("Detect the language of the turn once")).
		AddNode(nodeSupervisor, a.supervisorNode,
			graph.WithDescription("Route the turn to the cruise, general, or reset flow")).
		AddNode(nodeGeneral, a.generalNode).
		AddNode(nodeClearContext, a.clearContextNode).
		AddNode(nodeCruiseSupervisor, a.cruiseSupervisorNode).
		AddNode(nodeCruiseSearch, a.cruiseSearchNode).
		AddNode(nodeCruiseAssistant, a.assistantNode).
		AddNode(nodeTools, a.toolsNode).
		AddNode(nodePayment, a.paymentNode, graph.WithDestinations(map[string]string{
			nodePassengerInfo:   "payment confirmed",
			nodeCruiseAssistant: "payment declined",
		})).
		AddNode(nodePassengerInfo, a.passengerInfoNode, graph.WithDestinations(map[string]string{
			nodeSaveOrder: "details complete",
		})).
		AddNode(nodeSaveOrder, a.saveOrderNode, graph.WithDestinations(map[string]string{
			nodePaymentFailed: "store failure",
		})).
		AddNode(nodePaymentFailed, a.paymentFailedNode, graph.WithDestinations(map[string]string{
			nodePassengerInfo:   "retry",
			nodeCruiseAssistant: "give up",
		}))

	sg.SetEntryPoint(nodeDetectLanguage).
		AddEdge(nodeDetectLanguage, nodeSupervisor).
		AddConditionalEdges(nodeSupervisor, routeByKey(KeyAgentRouting), map[string]string{
			routeCruise:  nodeCruiseSupervisor,
			routeGeneral: nodeGeneral,
			routeClear:   nodeClearContext,
		}, routeCruise, routeGeneral, routeClear).
		SetFinishPoint(nodeGeneral).
		SetFinishPoint(nodeClearContext).
		AddConditionalEdges(nodeCruiseSupervisor, routeByKey(KeyFuncRouting), map[string]string{
			nodeCruiseSearch:    nodeCruiseSearch,
			nodeCruiseAssistant: nodeCruiseAssistant,
		}, nodeCruiseSearch, nodeCruiseAssistant).
		SetFinishPoint(nodeCruiseSearch).
		AddConditionalEdges(nodeCruiseAssistant, assistantRoute, map[string]string{
			labelPayment: nodePayment,
			labelTools:   nodeTools,
			labelEnd:     graph.End,
		}, labelPayment, labelTools, labelEnd).
		AddEdge(nodeTools, nodeCruiseAssistant)

	return sg.Compile()
}

// routeByKey routes on a label previously stored in state by a router node.
func routeByKey(key string) graph.ConditionalFunc {
	return func(ctx context.Context, state graph.State) (string, error) {
		return stateString(state, key), nil
	}
}
