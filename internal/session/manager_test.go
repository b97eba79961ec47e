package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateDefaultsToIdle(t *testing.T) {
	sm := NewSessionManager()
	assert.Equal(t, StateIdle, sm.GetState(1))
}

func TestSetAndClearState(t *testing.T) {
	sm := NewSessionManager()

	sm.SetState(1, StateAwaitingPrice)
	assert.Equal(t, StateAwaitingPrice, sm.GetState(1))
	// Состояния независимы по операторам.
	assert.Equal(t, StateIdle, sm.GetState(2))

	sm.ClearState(1)
	assert.Equal(t, StateIdle, sm.GetState(1))
}

func TestPricingSessionLifecycle(t *testing.T) {
	sm := NewSessionManager()

	_, ok := sm.GetPricingSession(1)
	require.False(t, ok)

	sm.SetPricingSession(1, PricingSession{OrderID: "id-1", AdminMessageID: 10})
	s, ok := sm.GetPricingSession(1)
	require.True(t, ok)
	assert.Equal(t, "id-1", s.OrderID)
	assert.Equal(t, 10, s.AdminMessageID)

	sm.ClearPricingSession(1)
	_, ok = sm.GetPricingSession(1)
	assert.False(t, ok)
}

func TestNewPricingSessionOverwritesStale(t *testing.T) {
	sm := NewSessionManager()

	// Оператор нажал «Назначить цену» у одной заявки, отвлекся и нажал
	// у другой: действует только последняя сессия.
	sm.SetPricingSession(1, PricingSession{OrderID: "id-1", AdminMessageID: 10})
	sm.SetPricingSession(1, PricingSession{OrderID: "id-2", AdminMessageID: 20})

	s, ok := sm.GetPricingSession(1)
	require.True(t, ok)
	assert.Equal(t, "id-2", s.OrderID)
	assert.Equal(t, 20, s.AdminMessageID)
}
