package negotiation

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transsfera/internal/models"
)

const testAdminChatID int64 = 777

// memStore — хранилище в памяти с той же семантикой атомарных операций,
// что и у Postgres-реализации (условные UPDATE по отсутствию цены /
// подтверждения).
type memStore struct {
	mu     sync.Mutex
	orders map[string]models.Order
	nextID int
}

func newMemStore() *memStore {
	return &memStore{orders: make(map[string]models.Order)}
}

func (s *memStore) Create(order models.Order) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := fmt.Sprintf("mem-%d", s.nextID)
	order.ID = id
	s.orders[id] = order
	return id, nil
}

func (s *memStore) Get(id string) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return models.Order{}, models.ErrOrderNotFound
	}
	return order, nil
}

func (s *memStore) SetPrice(id string, price float64) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return models.Order{}, models.ErrOrderNotFound
	}
	if order.Price.Valid {
		return models.Order{}, models.ErrPriceAlreadySet
	}
	order.Price = sql.NullFloat64{Float64: price, Valid: true}
	s.orders[id] = order
	return order, nil
}

func (s *memStore) SetAccepted(id string) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return models.Order{}, models.ErrOrderNotFound
	}
	if order.Accepted {
		return models.Order{}, models.ErrOrderAccepted
	}
	order.Accepted = true
	s.orders[id] = order
	return order, nil
}

func (s *memStore) Update(id string, fields map[string]interface{}) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return models.Order{}, models.ErrOrderNotFound
	}
	for field, value := range fields {
		switch field {
		case "price":
			order.Price = sql.NullFloat64{Float64: value.(float64), Valid: true}
		case "accepted":
			order.Accepted = value.(bool)
		case "comment":
			order.Comment = value.(string)
		default:
			return models.Order{}, fmt.Errorf("обновление поля '%s' не поддержано в memStore", field)
		}
	}
	s.orders[id] = order
	return order, nil
}

func (s *memStore) Delete(id string) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return models.Order{}, models.ErrOrderNotFound
	}
	if order.Accepted {
		return models.Order{}, models.ErrOrderAccepted
	}
	delete(s.orders, id)
	return order, nil
}

func (s *memStore) ListActive() ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		result = append(result, o)
	}
	return result, nil
}

type sentMessage struct {
	ChatID  int64
	Text    string
	Buttons [][]Button
}

type editedMessage struct {
	ChatID    int64
	MessageID int
	Text      string
	Buttons   [][]Button
}

// recGateway записывает исходящие сообщения вместо отправки в Telegram.
type recGateway struct {
	mu      sync.Mutex
	sent    []sentMessage
	edits   []editedMessage
	cleared []int
	nextID  int
	sendErr error
}

func (g *recGateway) Send(chatID int64, text string, buttons [][]Button) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return 0, g.sendErr
	}
	g.sent = append(g.sent, sentMessage{ChatID: chatID, Text: text, Buttons: buttons})
	g.nextID++
	return g.nextID, nil
}

func (g *recGateway) Edit(chatID int64, messageID int, text string, buttons [][]Button) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edits = append(g.edits, editedMessage{ChatID: chatID, MessageID: messageID, Text: text, Buttons: buttons})
	return nil
}

func (g *recGateway) ClearButtons(chatID int64, messageID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cleared = append(g.cleared, messageID)
	return nil
}

func (g *recGateway) sentTo(chatID int64) []sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	var result []sentMessage
	for _, m := range g.sent {
		if m.ChatID == chatID {
			result = append(result, m)
		}
	}
	return result
}

func newTestMachine() (*Machine, *memStore, *recGateway) {
	store := newMemStore()
	gw := &recGateway{}
	return NewMachine(store, gw, testAdminChatID), store, gw
}

func validPayload(t *testing.T) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"name": "Ana", "phone": "+34600000000",
		"date": "2025-06-01", "time": "10:00",
		"from_location": "Airport", "to_location": "Hotel",
		"adults": 2, "children": 0, "baggage": 1,
	})
	require.NoError(t, err)
	return raw
}

func submitTestOrder(t *testing.T, m *Machine) models.Order {
	t.Helper()
	order, err := m.Submit(validPayload(t), 100, "ana")
	require.NoError(t, err)
	return order
}

func TestSubmitCreatesOrderAndNotifiesBothParties(t *testing.T) {
	m, store, gw := newTestMachine()

	order := submitTestOrder(t, m)

	require.NotEmpty(t, order.ID)
	stored, err := store.Get(order.ID)
	require.NoError(t, err)
	assert.False(t, stored.Accepted)
	assert.False(t, stored.Price.Valid)
	assert.Equal(t, 2, stored.TotalPassengers())
	assert.Regexp(t, `^[A-Z]\d{4}$`, stored.PublicCode)

	clientMsgs := gw.sentTo(100)
	require.Len(t, clientMsgs, 1)
	assert.Contains(t, clientMsgs[0].Text, order.PublicCode)
	assert.Empty(t, clientMsgs[0].Buttons)

	adminMsgs := gw.sentTo(testAdminChatID)
	require.Len(t, adminMsgs, 1)
	require.Len(t, adminMsgs[0].Buttons, 1)
	require.Len(t, adminMsgs[0].Buttons[0], 2)
	assert.Equal(t, ActionSetPrice, adminMsgs[0].Buttons[0][0].Action)
	assert.Equal(t, ActionAdminDecline, adminMsgs[0].Buttons[0][1].Action)
	assert.Equal(t, order.ID, adminMsgs[0].Buttons[0][0].OrderID)
}

func TestSubmitRejectsMalformedPayloadWithoutRecord(t *testing.T) {
	m, store, gw := newTestMachine()

	_, err := m.Submit([]byte(`{"name": "Ana"`), 100, "ana")
	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)

	orders, err := store.ListActive()
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, gw.sent)
}

func TestSetPriceTransitionsToPriced(t *testing.T) {
	m, store, gw := newTestMachine()
	order := submitTestOrder(t, m)

	priced, err := m.SetPrice(order.ID, 45, 1)
	require.NoError(t, err)
	require.True(t, priced.Price.Valid)
	assert.Equal(t, 45.0, priced.Price.Float64)

	stored, err := store.Get(order.ID)
	require.NoError(t, err)
	assert.Equal(t, 45.0, stored.Price.Float64)

	// Клиенту ушло предложение цены с кнопками подтверждения/отказа.
	clientMsgs := gw.sentTo(100)
	require.Len(t, clientMsgs, 2)
	priceMsg := clientMsgs[1]
	assert.Contains(t, priceMsg.Text, "45€")
	assert.Contains(t, priceMsg.Text, "Подтверждаете поездку?")
	require.Len(t, priceMsg.Buttons, 1)
	assert.Equal(t, ActionAcceptPrice, priceMsg.Buttons[0][0].Action)
	assert.Equal(t, ActionDeclinePrice, priceMsg.Buttons[0][1].Action)

	// Сообщение оператора отредактировано на месте, кнопки убраны.
	require.Len(t, gw.edits, 1)
	assert.Equal(t, testAdminChatID, gw.edits[0].ChatID)
	assert.Equal(t, 1, gw.edits[0].MessageID)
	assert.Empty(t, gw.edits[0].Buttons)
	assert.Contains(t, gw.edits[0].Text, "Цена назначена")
}

func TestSetPriceIsIdempotentSafe(t *testing.T) {
	m, store, gw := newTestMachine()
	order := submitTestOrder(t, m)

	_, err := m.SetPrice(order.ID, 45, 1)
	require.NoError(t, err)
	clientCountAfterFirst := len(gw.sentTo(100))

	// Повторная отправка с устаревшей кнопки: цена не меняется,
	// клиенту ничего не уходит.
	_, err = m.SetPrice(order.ID, 60, 1)
	require.ErrorIs(t, err, models.ErrPriceAlreadySet)

	stored, err := store.Get(order.ID)
	require.NoError(t, err)
	assert.Equal(t, 45.0, stored.Price.Float64)
	assert.Len(t, gw.sentTo(100), clientCountAfterFirst)
}

func TestSetPriceOnMissingOrder(t *testing.T) {
	m, _, gw := newTestMachine()

	_, err := m.SetPrice("missing", 45, 0)
	require.ErrorIs(t, err, models.ErrOrderNotFound)
	assert.Empty(t, gw.sent)
}

func TestAcceptPriceFlow(t *testing.T) {
	m, store, gw := newTestMachine()
	order := submitTestOrder(t, m)
	_, err := m.SetPrice(order.ID, 45, 1)
	require.NoError(t, err)

	accepted, err := m.AcceptPrice(order.ID, 5)
	require.NoError(t, err)
	assert.True(t, accepted.Accepted)

	// Заявка остается в хранилище.
	stored, err := store.Get(order.ID)
	require.NoError(t, err)
	assert.True(t, stored.Accepted)

	// Кнопки у предложения цены убраны.
	assert.Contains(t, gw.cleared, 5)

	clientMsgs := gw.sentTo(100)
	assert.Contains(t, clientMsgs[len(clientMsgs)-1].Text, "подтверждена")

	adminMsgs := gw.sentTo(testAdminChatID)
	last := adminMsgs[len(adminMsgs)-1]
	assert.Contains(t, last.Text, "Клиент подтвердил")
	assert.Contains(t, last.Text, "45€")
}

func TestAcceptPriceWithoutPriceIsNotFatal(t *testing.T) {
	m, store, gw := newTestMachine()
	order := submitTestOrder(t, m)

	// Цена так и не была назначена: подтверждение проходит,
	// просто без блока стоимости.
	accepted, err := m.AcceptPrice(order.ID, 0)
	require.NoError(t, err)
	assert.True(t, accepted.Accepted)
	assert.False(t, accepted.Price.Valid)

	stored, err := store.Get(order.ID)
	require.NoError(t, err)
	assert.True(t, stored.Accepted)

	adminMsgs := gw.sentTo(testAdminChatID)
	assert.NotContains(t, adminMsgs[len(adminMsgs)-1].Text, "Стоимость")
}

func TestAcceptPriceTwice(t *testing.T) {
	m, _, gw := newTestMachine()
	order := submitTestOrder(t, m)
	_, err := m.SetPrice(order.ID, 45, 1)
	require.NoError(t, err)
	_, err = m.AcceptPrice(order.ID, 5)
	require.NoError(t, err)
	total := len(gw.sent)

	_, err = m.AcceptPrice(order.ID, 5)
	require.ErrorIs(t, err, models.ErrOrderAccepted)
	assert.Len(t, gw.sent, total, "повторное подтверждение не должно дублировать уведомления")
}

func TestDeclinePriceRemovesOrder(t *testing.T) {
	m, store, gw := newTestMachine()
	order := submitTestOrder(t, m)
	_, err := m.SetPrice(order.ID, 45, 1)
	require.NoError(t, err)

	_, err = m.DeclinePrice(order.ID, 5)
	require.NoError(t, err)

	_, err = store.Get(order.ID)
	require.ErrorIs(t, err, models.ErrOrderNotFound)

	assert.Contains(t, gw.cleared, 5)

	// Оператор видит, какая цена была отклонена.
	adminMsgs := gw.sentTo(testAdminChatID)
	last := adminMsgs[len(adminMsgs)-1]
	assert.Contains(t, last.Text, "отклонил")
	assert.Contains(t, last.Text, "45€")

	// Повторное нажатие по уже удаленной заявке не падает.
	_, err = m.DeclinePrice(order.ID, 5)
	require.ErrorIs(t, err, models.ErrOrderNotFound)
}

func TestDeclinePriceNeverRemovesAcceptedOrder(t *testing.T) {
	m, store, gw := newTestMachine()
	order := submitTestOrder(t, m)
	_, err := m.SetPrice(order.ID, 45, 1)
	require.NoError(t, err)
	_, err = m.AcceptPrice(order.ID, 5)
	require.NoError(t, err)
	total := len(gw.sent)

	_, err = m.DeclinePrice(order.ID, 5)
	require.ErrorIs(t, err, models.ErrOrderAccepted)

	_, err = store.Get(order.ID)
	require.NoError(t, err, "подтвержденная заявка должна остаться в хранилище")
	assert.Len(t, gw.sent, total)
}

// acceptOnDeleteStore перед самым удалением подтверждает заявку —
// имитация подтверждения клиента, пришедшего из параллельной горутины
// диспетчера прямо перед исполнением отказа.
type acceptOnDeleteStore struct {
	*memStore
}

func (s *acceptOnDeleteStore) Delete(id string) (models.Order, error) {
	if _, err := s.memStore.SetAccepted(id); err != nil {
		return models.Order{}, err
	}
	return s.memStore.Delete(id)
}

func TestDeclinePriceLosesRaceWithAccept(t *testing.T) {
	store := &acceptOnDeleteStore{memStore: newMemStore()}
	gw := &recGateway{}
	m := NewMachine(store, gw, testAdminChatID)

	order := submitTestOrder(t, m)
	_, err := m.SetPrice(order.ID, 45, 1)
	require.NoError(t, err)
	total := len(gw.sent)

	// Подтверждение выигрывает гонку: условное удаление не срабатывает,
	// подтвержденная заявка остается в хранилище.
	_, err = m.DeclinePrice(order.ID, 5)
	require.ErrorIs(t, err, models.ErrOrderAccepted)

	stored, err := store.Get(order.ID)
	require.NoError(t, err, "подтвержденная заявка не должна удаляться отказом")
	assert.True(t, stored.Accepted)
	assert.Len(t, gw.sent, total, "проигравший отказ не должен рассылать уведомления")
}

func TestAdminDeclineLosesRaceWithAccept(t *testing.T) {
	store := &acceptOnDeleteStore{memStore: newMemStore()}
	gw := &recGateway{}
	m := NewMachine(store, gw, testAdminChatID)

	order := submitTestOrder(t, m)
	_, err := m.SetPrice(order.ID, 45, 1)
	require.NoError(t, err)
	total := len(gw.sent)

	_, err = m.AdminDecline(order.ID, 1)
	require.ErrorIs(t, err, models.ErrOrderAccepted)

	stored, err := store.Get(order.ID)
	require.NoError(t, err)
	assert.True(t, stored.Accepted)
	assert.Len(t, gw.sent, total)
}

func TestAdminDeclineOnNewOrder(t *testing.T) {
	m, store, gw := newTestMachine()
	order := submitTestOrder(t, m)

	// Оператор отклоняет заявку, цена так и не назначалась.
	_, err := m.AdminDecline(order.ID, 1)
	require.NoError(t, err)

	_, err = store.Get(order.ID)
	require.ErrorIs(t, err, models.ErrOrderNotFound)

	// Клиент получает уведомление о недоступности на дату/время заявки.
	clientMsgs := gw.sentTo(100)
	last := clientMsgs[len(clientMsgs)-1]
	assert.Contains(t, last.Text, "нет свободных автомобилей")
	assert.Contains(t, last.Text, "1 июня 2025")
	assert.Contains(t, last.Text, "10:00")

	// Сообщение оператора правится на месте.
	require.NotEmpty(t, gw.edits)
	assert.Contains(t, gw.edits[len(gw.edits)-1].Text, "Отклонена оператором")

	_, err = m.AdminDecline(order.ID, 1)
	require.ErrorIs(t, err, models.ErrOrderNotFound)
}

func TestAdminDeclineOnPricedOrder(t *testing.T) {
	m, store, _ := newTestMachine()
	order := submitTestOrder(t, m)
	_, err := m.SetPrice(order.ID, 45, 1)
	require.NoError(t, err)

	_, err = m.AdminDecline(order.ID, 1)
	require.NoError(t, err)

	_, err = store.Get(order.ID)
	require.ErrorIs(t, err, models.ErrOrderNotFound)
}

func TestNotificationFailureDoesNotRollBackMutation(t *testing.T) {
	m, store, gw := newTestMachine()
	order := submitTestOrder(t, m)

	gw.sendErr = errors.New("telegram недоступен")
	priced, err := m.SetPrice(order.ID, 45, 1)
	require.NoError(t, err, "сбой уведомления не откатывает мутацию хранилища")
	assert.True(t, priced.Price.Valid)

	stored, err := store.Get(order.ID)
	require.NoError(t, err)
	assert.Equal(t, 45.0, stored.Price.Float64)
}

func TestStoreUpdateRoundTrip(t *testing.T) {
	store := newMemStore()
	id, err := store.Create(models.Order{PublicCode: "A1234", ClientChatID: 100, Name: "Ana", Date: "2025-06-01"})
	require.NoError(t, err)

	updated, err := store.Update(id, map[string]interface{}{"price": 45.0})
	require.NoError(t, err)
	assert.Equal(t, 45.0, updated.Price.Float64)

	got, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 45.0, got.Price.Float64)
	assert.Equal(t, "Ana", got.Name)
	assert.Equal(t, "2025-06-01", got.Date)
	assert.Equal(t, "A1234", got.PublicCode)
}
