package negotiation

import "transsfera/internal/models"

// Action — конечное множество действий, приходящих кнопками из чатов.
// Action — the finite set of actions arriving as chat buttons.
type Action string

const (
	ActionSetPrice     Action = "set_price"
	ActionAcceptPrice  Action = "accept_price"
	ActionDeclinePrice Action = "decline_price"
	ActionAdminDecline Action = "admin_decline"
)

// ParseAction сопоставляет строку из callback data с действием.
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionSetPrice, ActionAcceptPrice, ActionDeclinePrice, ActionAdminDecline:
		return Action(s), true
	}
	return "", false
}

// Button — абстрактная inline-кнопка: подпись плюс действие над заявкой.
// Транспорт сам решает, как превратить ее в разметку чата.
type Button struct {
	Label   string
	Action  Action
	OrderID string
}

// OrderStore — контракт хранилища заявок, потребляемый машиной состояний.
// Все операции атомарны на уровне одной записи; отсутствие записи
// сигнализируется models.ErrOrderNotFound и отличимо от сбоя хранилища.
// OrderStore — the order store contract consumed by the state machine.
// All operations are atomic at single-record granularity; a missing record
// is signalled via models.ErrOrderNotFound, distinct from a store failure.
type OrderStore interface {
	// Create сохраняет новую заявку и возвращает назначенный хранилищем ID.
	Create(order models.Order) (string, error)

	// Get возвращает заявку по ID либо models.ErrOrderNotFound.
	Get(id string) (models.Order, error)

	// SetPrice назначает цену, только если она еще не назначена, и
	// возвращает обновленную запись. Повторное назначение —
	// models.ErrPriceAlreadySet.
	SetPrice(id string, price float64) (models.Order, error)

	// SetAccepted помечает заявку подтвержденной, только если она еще не
	// подтверждена, и возвращает обновленную запись. Повторное
	// подтверждение — models.ErrOrderAccepted.
	SetAccepted(id string) (models.Order, error)

	// Update применяет частичное обновление разрешенных полей и
	// возвращает запись целиком после слияния.
	Update(id string, fields map[string]interface{}) (models.Order, error)

	// Delete удаляет запись, только если она еще не подтверждена, и
	// возвращает удаленную запись. Отсутствие записи —
	// models.ErrOrderNotFound, подтвержденная заявка —
	// models.ErrOrderAccepted (запись остается).
	Delete(id string) (models.Order, error)

	// ListActive возвращает все текущие заявки, новые первыми.
	ListActive() ([]models.Order, error)
}

// Gateway — контракт канала сообщений (Telegram в продакшене).
// Машина состояний знает только про отправку, правку и очистку кнопок.
type Gateway interface {
	// Send отправляет сообщение и возвращает ID отправленного сообщения.
	Send(chatID int64, text string, buttons [][]Button) (int, error)

	// Edit правит текст и кнопки ранее отправленного сообщения.
	Edit(chatID int64, messageID int, text string, buttons [][]Button) error

	// ClearButtons убирает inline-кнопки у сообщения, не трогая текст.
	ClearButtons(chatID int64, messageID int) error
}
