//
// Tencent is pleased to support the open source community by making trpc-cruise-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-cruise-agent-go is licensed under the Apache License Version 2.0.
//
//

package runner

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-cruise-agent-go/classify"
	"trpc.group/trpc-go/trpc-cruise-agent-go/cruise"
	"trpc.group/trpc-go/trpc-cruise-agent-go/graph"
	"trpc.group/trpc-go/trpc-cruise-agent-go/graph/checkpoint/inmemory"
	"trpc.group/trpc-go/trpc-cruise-agent-go/model"
	"trpc.group/trpc-go/trpc-cruise-agent-go/store"
	"trpc.group/trpc-go/trpc-cruise-agent-go/store/memory"
)

type scriptedModel struct {
	responses []model.Message
	calls     int
}

func (m *scriptedModel) GenerateContent(ctx context.Context, req *model.Request) (*model.Response, error) {
	if m.calls >= len(m.responses) {
		return &model.Response{Message: model.NewAssistantMessage("ok")}, nil
	}
	msg := m.responses[m.calls]
	m.calls++
	return &model.Response{Message: msg}, nil
}

func (m *scriptedModel) Info() model.Info { return model.Info{Name: "scripted"} }

type fakeClassifier struct {
	agentRoute string
	funcRoute  string
	yesNo      string
	criteria   *store.SearchCriteria
	contact    *store.ContactInfo
}

func (f *fakeClassifier) Classify(ctx context.Context, req *classify.Request) (string, error) {
	set := map[string]bool{}
	for _, l := range req.Labels {
		set[l] = true
	}
	switch {
	case set["cruise_node"]:
		return f.agentRoute, nil
	case set["cruise_search"]:
		return f.funcRoute, nil
	case set[classify.Yes] && len(req.Labels) == 2:
		return f.yesNo, nil
	case set["en"]:
		return "en", nil
	}
	return "", errors.New("unexpected classification request")
}

func (f *fakeClassifier) Extract(ctx context.Context, instruction, input string, out any) error {
	var src any
	switch out.(type) {
	case *store.SearchCriteria:
		src = f.criteria
	case *store.ContactInfo:
		src = f.contact
	default:
		return errors.New("unexpected extraction target")
	}
	if src == nil {
		return nil
	}
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func testStore(t *testing.T) *memory.Store {
	t.Helper()
	return memory.New(
		memory.WithCruises(store.Cruise{
			ID:              "c-norway",
			Title:           "Fjords of Norway",
			Destination:     "Norway",
			EmbarkationPort: "Bergen",
			SailStartDate:   "2026-07-01",
			SailEndDate:     "2026-07-08",
			Duration:        7,
			Price:           3400,
			Currency:        "USD",
		}),
		memory.WithCabins("c-norway",
			store.Cabin{CruiseID: "c-norway", Name: "Aurora Suite", Price: 3400},
		),
		memory.WithClock(func() time.Time {
			return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		}),
	)
}

func newRunner(t *testing.T, m model.Model, c classify.Classifier, s store.Store) (*Runner, *inmemory.Saver) {
	t.Helper()
	saver := inmemory.NewSaver()
	r, err := New(cruise.New(m, c, s), saver)
	require.NoError(t, err)
	return r, saver
}

func TestFreshTurnSearch(t *testing.T) {
	classifier := &fakeClassifier{
		agentRoute: "cruise_node",
		funcRoute:  "cruise_search",
		criteria:   &store.SearchCriteria{Destinations: []string{"Norway"}},
	}
	m := &scriptedModel{responses: []model.Message{
		model.NewAssistantMessage("One cruise sails the Norwegian fjords in July."),
	}}
	r, saver := newRunner(t, m, classifier, testStore(t))

	resp, err := r.RunTurn(context.Background(), &TurnRequest{
		Message:  "Any cruises to Norway?",
		UserID:   "u-1",
		Currency: "EUR",
		Country:  "DE",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.SessionID, "a session is minted when none is given")
	assert.False(t, resp.Suspended)
	assert.Equal(t, "One cruise sails the Norwegian fjords in July.", resp.Message)
	assert.Equal(t, "EUR", resp.Currency)
	assert.Equal(t, "DE", resp.Country)
	require.Len(t, resp.Cruises, 1)
	assert.Equal(t, "c-norway", resp.Cruises[0].ID)
	assert.Empty(t, resp.Cabins)

	checkpoint, err := saver.Get(context.Background(), resp.SessionID)
	require.NoError(t, err)
	require.NotNil(t, checkpoint)
	assert.Equal(t, 1, checkpoint.Step)
	assert.Empty(t, checkpoint.Cursor, "an answered turn leaves the thread idle")
	assert.Nil(t, checkpoint.Interrupt)
}

func TestHistorySurvivesAcrossTurns(t *testing.T) {
	classifier := &fakeClassifier{agentRoute: "general_node"}
	m := &scriptedModel{responses: []model.Message{
		model.NewAssistantMessage("Hello! Ask me about cruises."),
		model.NewAssistantMessage("Still here."),
	}}
	r, saver := newRunner(t, m, classifier, testStore(t))

	resp, err := r.RunTurn(context.Background(), &TurnRequest{Message: "hi", UserID: "u-1"})
	require.NoError(t, err)
	resp2, err := r.RunTurn(context.Background(), &TurnRequest{
		Message: "are you there?", SessionID: resp.SessionID, UserID: "u-1",
	})
	require.NoError(t, err)
	assert.Equal(t, resp.SessionID, resp2.SessionID)
	assert.Equal(t, "Still here.", resp2.Message)

	checkpoint, err := saver.Get(context.Background(), resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, checkpoint.Step)

	var snapshot map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(checkpoint.StateJSON, &snapshot))
	var msgs []model.Message
	require.NoError(t, json.Unmarshal(snapshot[cruise.KeyMessages], &msgs))
	require.Len(t, msgs, 4, "both turns' user and assistant messages persist")
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, "are you there?", msgs[2].Content)
}

func paymentRunner(t *testing.T, s store.Store) (*Runner, *inmemory.Saver, *fakeClassifier, *scriptedModel) {
	t.Helper()
	classifier := &fakeClassifier{
		agentRoute: "cruise_node",
		funcRoute:  "cruise_assistant",
		yesNo:      classify.Yes,
		contact: &store.ContactInfo{
			FirstName: "Grace", LastName: "Hopper",
			Email: "grace@example.com", Phone: "+1 555 0101",
		},
	}
	startPayment := model.NewAssistantMessage("")
	startPayment.ToolCalls = []model.ToolCall{{
		ID:       "call-pay-1",
		Function: model.FunctionCall{Name: "start_payment", Arguments: []byte(`{}`)},
	}}
	m := &scriptedModel{responses: []model.Message{startPayment}}
	r, saver := newRunner(t, m, classifier, s)
	return r, saver, classifier, m
}

func TestSuspendAndResumePaymentFlow(t *testing.T) {
	ctx := context.Background()
	st := testStore(t)
	require.NoError(t, st.AddToCart(ctx, "u-1",
		store.CartEntry{CruiseID: "c-norway", CabinName: "Aurora Suite", Price: 3400, Currency: "USD"}))
	r, saver, _, _ := paymentRunner(t, st)

	resp, err := r.RunTurn(ctx, &TurnRequest{Message: "pay for my cart", UserID: "u-1"})
	require.NoError(t, err)
	assert.True(t, resp.Suspended)
	assert.Contains(t, resp.Message, "3400.00")

	checkpoint, err := saver.Get(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "payment", checkpoint.Cursor)
	require.NotNil(t, checkpoint.Interrupt)
	assert.Equal(t, "payment_confirm", checkpoint.Interrupt.Key)

	resp, err = r.RunTurn(ctx, &TurnRequest{Message: "yes", SessionID: resp.SessionID})
	require.NoError(t, err)
	assert.True(t, resp.Suspended)
	assert.Contains(t, resp.Message, "passenger's details")

	checkpoint, err = saver.Get(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "passenger_info", checkpoint.Cursor)
	assert.Contains(t, checkpoint.Interrupt.Used, "payment_confirm",
		"the confirmation answer is memoized for re-execution")

	resp, err = r.RunTurn(ctx, &TurnRequest{
		Message: "Grace Hopper, grace@example.com, +1 555 0101", SessionID: resp.SessionID,
	})
	require.NoError(t, err)
	assert.False(t, resp.Suspended)
	assert.Equal(t, "order_saved", resp.Action)
	assert.Contains(t, resp.Message, "confirmed")

	checkpoint, err = saver.Get(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Empty(t, checkpoint.Cursor)
	assert.Nil(t, checkpoint.Interrupt)

	orders, err := st.GetOrders(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "grace@example.com", orders[0].Contact.Email)
}

func TestResumeDeclinedPayment(t *testing.T) {
	ctx := context.Background()
	r, _, classifier, m := paymentRunner(t, testStore(t))
	classifier.yesNo = classify.No
	m.responses = append(m.responses, model.NewAssistantMessage("No problem, nothing was charged."))

	resp, err := r.RunTurn(ctx, &TurnRequest{Message: "pay now", UserID: "u-1"})
	require.NoError(t, err)
	require.True(t, resp.Suspended)

	resp, err = r.RunTurn(ctx, &TurnRequest{Message: "actually no", SessionID: resp.SessionID})
	require.NoError(t, err)
	assert.False(t, resp.Suspended)
	assert.Equal(t, "No problem, nothing was charged.", resp.Message)
}

func TestConcurrentTurnRejected(t *testing.T) {
	r, _ := newRunner(t, &scriptedModel{}, &fakeClassifier{agentRoute: "general_node"}, testStore(t))

	lock, ok := r.acquireThread("busy-thread")
	require.True(t, ok)
	defer func() {
		lock.mu.Unlock()
		r.releaseThread("busy-thread", lock)
	}()

	_, err := r.RunTurn(context.Background(), &TurnRequest{
		Message: "hello", SessionID: "busy-thread",
	})
	assert.ErrorIs(t, err, ErrConcurrentTurn)
}

func TestThreadLocksAreEvictedWhenIdle(t *testing.T) {
	ctx := context.Background()
	r, _ := newRunner(t, &scriptedModel{}, &fakeClassifier{agentRoute: "general_node"}, testStore(t))

	for _, session := range []string{"s-1", "s-2", "s-3"} {
		_, err := r.RunTurn(ctx, &TurnRequest{Message: "hi", SessionID: session, UserID: "u-1"})
		require.NoError(t, err)
	}

	r.mu.Lock()
	remaining := len(r.turns)
	r.mu.Unlock()
	assert.Zero(t, remaining, "idle threads keep no lock entries")
}

func TestFailedTurnKeepsPreviousCheckpoint(t *testing.T) {
	ctx := context.Background()
	classifier := &fakeClassifier{agentRoute: "general_node"}
	m := &scriptedModel{responses: []model.Message{
		model.NewAssistantMessage("Hi there."),
	}}
	r, saver := newRunner(t, m, classifier, testStore(t))

	resp, err := r.RunTurn(ctx, &TurnRequest{Message: "hi", UserID: "u-1"})
	require.NoError(t, err)

	before, err := saver.Get(ctx, resp.SessionID)
	require.NoError(t, err)

	// An out-of-set routing label fails the turn before any commit.
	classifier.agentRoute = "weather_node"
	_, err = r.RunTurn(ctx, &TurnRequest{Message: "again", SessionID: resp.SessionID, UserID: "u-1"})
	var routingErr *graph.RoutingError
	require.ErrorAs(t, err, &routingErr)

	after, err := saver.Get(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID, "the failed turn did not overwrite the checkpoint")
	assert.Equal(t, before.Step, after.Step)
}

func TestResetDiscardsThread(t *testing.T) {
	ctx := context.Background()
	r, saver := newRunner(t, &scriptedModel{}, &fakeClassifier{agentRoute: "general_node"}, testStore(t))

	resp, err := r.RunTurn(ctx, &TurnRequest{Message: "hi", UserID: "u-1"})
	require.NoError(t, err)
	require.NoError(t, r.Reset(ctx, resp.SessionID))

	checkpoint, err := saver.Get(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Nil(t, checkpoint)
}
