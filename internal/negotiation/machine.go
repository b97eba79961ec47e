package negotiation

import (
	"errors"
	"fmt"
	"log"

	"transsfera/internal/formatters"
	"transsfera/internal/models"
	"transsfera/internal/orders"
)

// Machine — машина состояний согласования заявки.
// Жизненный цикл: New (создана, цены нет) → Priced (цена назначена,
// ждем решение клиента) → Accepted (подтверждена) либо удаление записи
// при отказе клиента или оператора. Состояние заявки целиком выводится
// из записи в хранилище: цены нет — New, цена есть — Priced,
// accepted=true — Accepted. Отдельного поля статуса нет, отказ записи
// не оставляет.
// Machine — the order negotiation state machine. An order's state is
// derived entirely from the stored record: no price — New, price set —
// Priced, accepted=true — Accepted. Declines delete the record.
type Machine struct {
	store       OrderStore
	gateway     Gateway
	adminChatID int64
}

// NewMachine создает машину состояний поверх хранилища и канала сообщений.
func NewMachine(store OrderStore, gateway Gateway, adminChatID int64) *Machine {
	return &Machine{store: store, gateway: gateway, adminChatID: adminChatID}
}

// Submit обрабатывает входящую форму заявки: валидация и сборка записи
// (фабрика), сохранение, стартовые уведомления клиенту и оператору.
// Ошибка валидации возвращается вызывающему без создания записи.
// Сбой уведомления после успешного сохранения логируется и не
// откатывает запись: источник истины — хранилище.
func (m *Machine) Submit(raw []byte, chatID int64, username string) (models.Order, error) {
	order, err := orders.ParseOrder(raw, chatID, username)
	if err != nil {
		return models.Order{}, err
	}

	id, err := m.store.Create(order)
	if err != nil {
		log.Printf("Submit: ошибка сохранения заявки для chatID %d: %v", chatID, err)
		return models.Order{}, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	order.ID = id
	log.Printf("Submit: заявка №%s (id=%s) создана для chatID %d.", order.PublicCode, order.ID, chatID)

	clientText := fmt.Sprintf("✅  <b>Заявка №%s принята!</b>\n\n", order.PublicCode) +
		formatters.ForClient(&order, false) +
		"\n⏳  <i>Оператор рассчитает стоимость и пришлет ее в этот чат.</i>"
	if _, err := m.gateway.Send(order.ClientChatID, clientText, nil); err != nil {
		log.Printf("Submit: не удалось отправить подтверждение клиенту %d: %v", order.ClientChatID, err)
	}

	adminText := fmt.Sprintf("🆕  <b>Новая заявка №%s</b>\n\n", order.PublicCode) +
		formatters.ForAdmin(&order, "")
	adminButtons := [][]Button{{
		{Label: "💰  Назначить цену", Action: ActionSetPrice, OrderID: order.ID},
		{Label: "❌  Отклонить", Action: ActionAdminDecline, OrderID: order.ID},
	}}
	if _, err := m.gateway.Send(m.adminChatID, adminText, adminButtons); err != nil {
		log.Printf("Submit: не удалось уведомить оператора о заявке №%s: %v", order.PublicCode, err)
	}

	return order, nil
}

// SetPrice назначает цену заявке: переход New → Priced.
// Предусловия проверяет хранилище атомарно: заявки нет —
// ErrOrderNotFound, цена уже есть — ErrPriceAlreadySet (защита от
// повторной отправки с устаревшей кнопки); в обоих случаях состояние не
// меняется. adminMessageID — сообщение оператора с исходной заявкой,
// оно правится на месте (best-effort).
func (m *Machine) SetPrice(id string, price float64, adminMessageID int) (models.Order, error) {
	order, err := m.store.SetPrice(id, price)
	switch {
	case errors.Is(err, models.ErrOrderNotFound), errors.Is(err, models.ErrPriceAlreadySet):
		return models.Order{}, err
	case err != nil:
		log.Printf("SetPrice: ошибка хранилища для заявки id=%s: %v", id, err)
		return models.Order{}, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	log.Printf("SetPrice: заявке №%s (id=%s) назначена цена %.0f€.", order.PublicCode, order.ID, price)

	clientButtons := [][]Button{{
		{Label: "✅  Подтвердить", Action: ActionAcceptPrice, OrderID: order.ID},
		{Label: "❌  Отменить", Action: ActionDeclinePrice, OrderID: order.ID},
	}}
	if _, err := m.gateway.Send(order.ClientChatID, formatters.ForClient(&order, true), clientButtons); err != nil {
		log.Printf("SetPrice: не удалось отправить цену клиенту %d (заявка №%s): %v", order.ClientChatID, order.PublicCode, err)
	}

	if adminMessageID != 0 {
		adminText := fmt.Sprintf("🆕  <b>Новая заявка №%s</b>\n\n", order.PublicCode) +
			formatters.ForAdmin(&order, "\n\n💰  Цена назначена. Ожидаем решение клиента.")
		if err := m.gateway.Edit(m.adminChatID, adminMessageID, adminText, nil); err != nil {
			log.Printf("SetPrice: не удалось отредактировать сообщение оператора %d: %v", adminMessageID, err)
		}
	}

	return order, nil
}

// AcceptPrice фиксирует согласие клиента: переход Priced → Accepted.
// Кнопки убираются у сообщения с предложением цены (promptMessageID,
// идемпотентная чистка UI). Отсутствие цены в записи не фатально:
// подтверждение просто уходит без блока стоимости.
func (m *Machine) AcceptPrice(id string, promptMessageID int) (models.Order, error) {
	order, err := m.store.SetAccepted(id)
	switch {
	case errors.Is(err, models.ErrOrderNotFound), errors.Is(err, models.ErrOrderAccepted):
		return models.Order{}, err
	case err != nil:
		log.Printf("AcceptPrice: ошибка хранилища для заявки id=%s: %v", id, err)
		return models.Order{}, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	log.Printf("AcceptPrice: клиент подтвердил заявку №%s (id=%s).", order.PublicCode, order.ID)

	if promptMessageID != 0 {
		if err := m.gateway.ClearButtons(order.ClientChatID, promptMessageID); err != nil {
			log.Printf("AcceptPrice: не удалось убрать кнопки у сообщения %d: %v", promptMessageID, err)
		}
	}

	clientText := fmt.Sprintf("✅  <b>Поездка по заявке №%s подтверждена!</b>\n\nВодитель свяжется с вами для уточнения деталей. Хорошей дороги! 🚗", order.PublicCode)
	if _, err := m.gateway.Send(order.ClientChatID, clientText, nil); err != nil {
		log.Printf("AcceptPrice: не удалось отправить подтверждение клиенту %d: %v", order.ClientChatID, err)
	}

	adminText := fmt.Sprintf("✅  <b>Клиент подтвердил заявку №%s</b>\n\n", order.PublicCode) +
		formatters.ForAdmin(&order, "")
	if _, err := m.gateway.Send(m.adminChatID, adminText, nil); err != nil {
		log.Printf("AcceptPrice: не удалось уведомить оператора по заявке №%s: %v", order.PublicCode, err)
	}

	return order, nil
}

// DeclinePrice обрабатывает отказ клиента от цены: запись удаляется,
// архивного состояния «отклонена» нет. Арбитр исхода — условное
// удаление в хранилище: подтвержденные заявки путем отказа не удаляются
// (ErrOrderAccepted), даже если подтверждение пришло параллельно.
// Кнопки у сообщения с ценой убираются, чтобы управление не зависло в
// чате; при повторном нажатии (заявки уже нет) чистку делает
// обработчик, знающий чат коллбэка.
func (m *Machine) DeclinePrice(id string, promptMessageID int) (models.Order, error) {
	order, err := m.store.Delete(id)
	switch {
	case errors.Is(err, models.ErrOrderNotFound), errors.Is(err, models.ErrOrderAccepted):
		return models.Order{}, err
	case err != nil:
		log.Printf("DeclinePrice: ошибка удаления заявки id=%s: %v", id, err)
		return models.Order{}, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	log.Printf("DeclinePrice: клиент отклонил цену по заявке №%s (id=%s), запись удалена.", order.PublicCode, order.ID)

	if promptMessageID != 0 {
		if err := m.gateway.ClearButtons(order.ClientChatID, promptMessageID); err != nil {
			log.Printf("DeclinePrice: не удалось убрать кнопки у сообщения %d: %v", promptMessageID, err)
		}
	}

	clientText := fmt.Sprintf("Заявка №%s отменена. Будем рады помочь в следующий раз! 🚗", order.PublicCode)
	if _, err := m.gateway.Send(order.ClientChatID, clientText, nil); err != nil {
		log.Printf("DeclinePrice: не удалось отправить клиенту %d прощальное сообщение: %v", order.ClientChatID, err)
	}

	adminText := fmt.Sprintf("❌  Клиент отклонил предложенную цену по заявке №%s", order.PublicCode)
	if order.Price.Valid {
		adminText = fmt.Sprintf("❌  Клиент отклонил цену %.0f€ по заявке №%s", order.Price.Float64, order.PublicCode)
	}
	adminText += ". Заявка удалена."
	if _, err := m.gateway.Send(m.adminChatID, adminText, nil); err != nil {
		log.Printf("DeclinePrice: не удалось уведомить оператора по заявке №%s: %v", order.PublicCode, err)
	}

	return order, nil
}

// AdminDecline — отказ оператора от заявки целиком (из состояний New и
// Priced). Арбитр исхода — то же условное удаление: заявку, которую
// клиент уже подтвердил, оператор этим путем не удалит
// (ErrOrderAccepted). Сообщение оператора правится на месте
// (best-effort: неудачная правка логируется, исход уже состоялся),
// клиент получает уведомление о недоступности машины.
func (m *Machine) AdminDecline(id string, adminMessageID int) (models.Order, error) {
	order, err := m.store.Delete(id)
	switch {
	case errors.Is(err, models.ErrOrderNotFound), errors.Is(err, models.ErrOrderAccepted):
		return models.Order{}, err
	case err != nil:
		log.Printf("AdminDecline: ошибка удаления заявки id=%s: %v", id, err)
		return models.Order{}, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	log.Printf("AdminDecline: оператор отклонил заявку №%s (id=%s), запись удалена.", order.PublicCode, order.ID)

	if adminMessageID != 0 {
		adminText := fmt.Sprintf("🆕  <b>Новая заявка №%s</b>\n\n", order.PublicCode) +
			formatters.ForAdmin(&order, "\n\n❌  Отклонена оператором.")
		if err := m.gateway.Edit(m.adminChatID, adminMessageID, adminText, nil); err != nil {
			log.Printf("AdminDecline: не удалось отредактировать сообщение оператора %d: %v", adminMessageID, err)
		}
	}

	clientText := fmt.Sprintf(
		"😔  К сожалению, на %s в %s нет свободных автомобилей.\n\nПопробуйте выбрать другие дату или время — будем рады помочь!",
		formatters.ConvertDate(order.Date), order.Time)
	if _, err := m.gateway.Send(order.ClientChatID, clientText, nil); err != nil {
		log.Printf("AdminDecline: не удалось уведомить клиента %d: %v", order.ClientChatID, err)
	}

	return order, nil
}
