package session

import (
	"log"
	"sync"
)

// Состояния оператора. Единственный многошаговый диалог —
// ввод цены после нажатия «Назначить цену».
// Operator states. The only multi-step dialog is price entry after
// pressing "set price".
const (
	StateIdle          = "idle"
	StateAwaitingPrice = "awaiting_price"
)

// PricingSession — короткоживущий контекст ввода цены: какая заявка
// сейчас оценивается и какое сообщение оператора править после
// назначения цены. Хранится отдельно от записи заявки: заявка не знает
// про сообщения чата.
// PricingSession — transient price-entry context: which order is being
// priced and which operator message to edit once the price is set.
// Kept apart from the order record: orders know nothing about chat
// messages.
type PricingSession struct {
	OrderID        string
	AdminMessageID int
}

// SessionManager управляет состояниями операторов и контекстами ввода цены.
// Ключ везде — chatID оператора. Данные недолговечны: каждое новое
// нажатие «Назначить цену» перезаписывает устаревшую сессию.
type SessionManager struct {
	states      map[int64]string
	statesMutex sync.RWMutex

	pricing      map[int64]PricingSession
	pricingMutex sync.RWMutex
}

// NewSessionManager создает и возвращает новый экземпляр SessionManager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		states:  make(map[int64]string),
		pricing: make(map[int64]PricingSession),
	}
}

// GetState возвращает текущее состояние оператора.
// Если состояние не установлено, возвращает StateIdle.
func (sm *SessionManager) GetState(chatID int64) string {
	sm.statesMutex.RLock()
	defer sm.statesMutex.RUnlock()
	state, ok := sm.states[chatID]
	if !ok {
		return StateIdle
	}
	return state
}

// SetState устанавливает новое состояние для оператора.
func (sm *SessionManager) SetState(chatID int64, state string) {
	sm.statesMutex.Lock()
	defer sm.statesMutex.Unlock()
	sm.states[chatID] = state
	log.Printf("SessionManager.SetState: состояние для chatID %d установлено: %s", chatID, state)
}

// ClearState сбрасывает состояние оператора в StateIdle.
func (sm *SessionManager) ClearState(chatID int64) {
	sm.statesMutex.Lock()
	defer sm.statesMutex.Unlock()
	delete(sm.states, chatID)
}

// SetPricingSession запоминает контекст ввода цены для оператора.
// Любая предыдущая (возможно зависшая) сессия перезаписывается.
func (sm *SessionManager) SetPricingSession(chatID int64, s PricingSession) {
	sm.pricingMutex.Lock()
	defer sm.pricingMutex.Unlock()
	if old, ok := sm.pricing[chatID]; ok && old.OrderID != s.OrderID {
		log.Printf("SessionManager.SetPricingSession: для chatID %d перезаписана устаревшая сессия (заявка id=%s -> id=%s)", chatID, old.OrderID, s.OrderID)
	}
	sm.pricing[chatID] = s
}

// GetPricingSession возвращает контекст ввода цены, если он есть.
func (sm *SessionManager) GetPricingSession(chatID int64) (PricingSession, bool) {
	sm.pricingMutex.RLock()
	defer sm.pricingMutex.RUnlock()
	s, ok := sm.pricing[chatID]
	return s, ok
}

// ClearPricingSession удаляет контекст ввода цены оператора.
func (sm *SessionManager) ClearPricingSession(chatID int64) {
	sm.pricingMutex.Lock()
	defer sm.pricingMutex.Unlock()
	delete(sm.pricing, chatID)
}
