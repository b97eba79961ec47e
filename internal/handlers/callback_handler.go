package handlers

import (
	"errors"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"transsfera/internal/models"
	"transsfera/internal/negotiation"
	"transsfera/internal/session"
)

// HandleCallback обрабатывает нажатия inline-кнопок. Callback data имеет
// форму "action:orderID" над конечным множеством действий; на каждое
// нажатие отправляется ответ, чтобы кнопка не «висела» в чате — в том
// числе когда заявки уже нет.
func (bh *BotHandler) HandleCallback(update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[CALLBACK_HANDLER] ПАНИКА при обработке коллбэка: %v", r)
		}
	}()

	query := update.CallbackQuery
	if query == nil {
		log.Println("[CALLBACK_HANDLER] Получен пустой CallbackQuery.")
		return
	}

	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID
	data := query.Data

	log.Printf("[CALLBACK_HANDLER] START: ChatID=%d, User=%s, MsgID=%d, Data='%s'",
		chatID, query.From.UserName, messageID, data)

	answerText := ""
	defer func() {
		callbackAns := tgbotapi.NewCallback(query.ID, answerText)
		if _, err := bh.Deps.BotClient.Request(callbackAns); err != nil {
			log.Printf("[CALLBACK_HANDLER] Ошибка ответа на CallbackQuery ID %s: %v", query.ID, err)
		}
	}()

	parts := strings.SplitN(data, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		log.Printf("[CALLBACK_HANDLER] Некорректный callback data '%s' от chatID %d.", data, chatID)
		return
	}
	action, ok := negotiation.ParseAction(parts[0])
	if !ok {
		log.Printf("[CALLBACK_HANDLER] Неизвестное действие '%s' от chatID %d.", parts[0], chatID)
		return
	}
	orderID := parts[1]

	switch action {
	case negotiation.ActionSetPrice:
		answerText = bh.handleSetPricePressed(chatID, messageID, orderID)
	case negotiation.ActionAcceptPrice:
		answerText = bh.handleAcceptPricePressed(chatID, messageID, orderID)
	case negotiation.ActionDeclinePrice:
		answerText = bh.handleDeclinePricePressed(chatID, messageID, orderID)
	case negotiation.ActionAdminDecline:
		answerText = bh.handleAdminDeclinePressed(chatID, messageID, orderID)
	}
}

// handleSetPricePressed открывает диалог ввода цены: запоминает контекст
// (заявка + сообщение оператора для последующей правки) и просит прислать
// цену числом. Новое нажатие всегда перезаписывает устаревшую сессию.
func (bh *BotHandler) handleSetPricePressed(chatID int64, messageID int, orderID string) string {
	if !bh.isAdminChat(chatID) {
		log.Printf("[CALLBACK_HANDLER] set_price из чужого чата %d проигнорирован.", chatID)
		return "Недостаточно прав."
	}

	order, err := bh.Deps.Store.Get(orderID)
	switch {
	case errors.Is(err, models.ErrOrderNotFound):
		return "Заявка не найдена — возможно, уже удалена."
	case err != nil:
		log.Printf("handleSetPricePressed: ошибка чтения заявки id=%s: %v", orderID, err)
		return "Произошла ошибка. Попробуйте еще раз."
	case order.Price.Valid:
		return "Цена по этой заявке уже назначена."
	}

	bh.Deps.SessionManager.SetPricingSession(chatID, session.PricingSession{
		OrderID:        orderID,
		AdminMessageID: messageID,
	})
	bh.Deps.SessionManager.SetState(chatID, session.StateAwaitingPrice)

	prompt := tgbotapi.NewMessage(chatID, fmt.Sprintf("Введите цену в € для заявки №%s одним числом:", order.PublicCode))
	if _, err := bh.Deps.BotClient.Send(prompt); err != nil {
		log.Printf("handleSetPricePressed: не удалось отправить запрос цены для chatID %d: %v", chatID, err)
	}
	return ""
}

func (bh *BotHandler) handleAcceptPricePressed(chatID int64, messageID int, orderID string) string {
	_, err := bh.Deps.Machine.AcceptPrice(orderID, messageID)
	switch {
	case errors.Is(err, models.ErrOrderNotFound):
		bh.clearButtonsHelper(chatID, messageID)
		return "Заявка уже не активна."
	case errors.Is(err, models.ErrOrderAccepted):
		// Повторное нажатие: исход уже состоялся, дублей уведомлений не шлем.
		bh.clearButtonsHelper(chatID, messageID)
		return "Заявка уже подтверждена."
	case err != nil:
		return "Произошла ошибка. Попробуйте еще раз."
	}
	return "✅"
}

func (bh *BotHandler) handleDeclinePricePressed(chatID int64, messageID int, orderID string) string {
	_, err := bh.Deps.Machine.DeclinePrice(orderID, messageID)
	switch {
	case errors.Is(err, models.ErrOrderNotFound):
		bh.clearButtonsHelper(chatID, messageID)
		return "Заявка уже не активна."
	case errors.Is(err, models.ErrOrderAccepted):
		bh.clearButtonsHelper(chatID, messageID)
		return "Поездка уже подтверждена — для отмены свяжитесь с оператором."
	case err != nil:
		return "Произошла ошибка. Попробуйте еще раз."
	}
	return ""
}

func (bh *BotHandler) handleAdminDeclinePressed(chatID int64, messageID int, orderID string) string {
	if !bh.isAdminChat(chatID) {
		log.Printf("[CALLBACK_HANDLER] admin_decline из чужого чата %d проигнорирован.", chatID)
		return "Недостаточно прав."
	}

	_, err := bh.Deps.Machine.AdminDecline(orderID, messageID)
	switch {
	case errors.Is(err, models.ErrOrderNotFound):
		return "Заявка не найдена — возможно, уже удалена."
	case errors.Is(err, models.ErrOrderAccepted):
		return "Клиент уже подтвердил эту заявку."
	case err != nil:
		return "Произошла ошибка. Попробуйте еще раз."
	}
	return ""
}

// clearButtonsHelper убирает кнопки у сообщения с коллбэком (best-effort).
func (bh *BotHandler) clearButtonsHelper(chatID int64, messageID int) {
	if err := bh.Deps.Gateway.ClearButtons(chatID, messageID); err != nil {
		log.Printf("clearButtonsHelper: не удалось убрать кнопки у сообщения %d в чате %d: %v", messageID, chatID, err)
	}
}
