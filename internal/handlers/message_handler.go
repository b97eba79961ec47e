package handlers

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"transsfera/internal/models"
	"transsfera/internal/session"
)

// HandleMessage обрабатывает входящие текстовые сообщения, команды и
// данные формы WebApp. Вызывается из цикла обновлений в отдельной
// горутине; паника обработчика не должна останавливать диспетчер.
func (bh *BotHandler) HandleMessage(update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[MESSAGE_HANDLER] ПАНИКА при обработке сообщения: %v", r)
		}
	}()

	msg := update.Message
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID

	// Данные формы заявки, присланные Telegram WebApp.
	if msg.WebAppData != nil {
		bh.handleWebAppData(msg)
		return
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			bh.handleStartCommand(chatID)
		case "export":
			if bh.isAdminChat(chatID) {
				bh.handleExportCommand(chatID)
			} else {
				log.Printf("[MESSAGE_HANDLER] Команда /export из чужого чата %d проигнорирована.", chatID)
			}
		case "qr":
			if bh.isAdminChat(chatID) {
				bh.handleQRCommand(chatID)
			} else {
				log.Printf("[MESSAGE_HANDLER] Команда /qr из чужого чата %d проигнорирована.", chatID)
			}
		default:
			log.Printf("[MESSAGE_HANDLER] Неизвестная команда '%s' от chatID %d.", msg.Command(), chatID)
		}
		return
	}

	// Единственный текстовый диалог — ввод цены оператором.
	if bh.isAdminChat(chatID) && bh.Deps.SessionManager.GetState(chatID) == session.StateAwaitingPrice {
		bh.handlePriceInput(msg)
		return
	}

	log.Printf("[MESSAGE_HANDLER] Сообщение от chatID %d без активного диалога: '%.50s'", chatID, msg.Text)
}

// handleStartCommand отправляет приветствие и клавиатуру с кнопкой
// открытия формы WebApp.
func (bh *BotHandler) handleStartCommand(chatID int64) {
	welcome := tgbotapi.NewMessage(chatID, "Добро пожаловать в Transsfera! 🚗\n\nНажмите кнопку ниже, чтобы заказать трансфер.")
	welcome.ReplyMarkup = bh.mainKeyboard()
	if _, err := bh.Deps.BotClient.Send(welcome); err != nil {
		log.Printf("handleStartCommand: не удалось отправить приветствие для chatID %d: %v", chatID, err)
	}
}

// mainKeyboard — reply-клавиатура с единственной кнопкой формы заявки.
func (bh *BotHandler) mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	button := tgbotapi.KeyboardButton{
		Text:   "🚗  ЗАКАЗАТЬ ТРАНСФЕР",
		WebApp: &tgbotapi.WebAppInfo{URL: "https://" + bh.Deps.Config.WebAppURL},
	}
	return tgbotapi.ReplyKeyboardMarkup{
		Keyboard:        [][]tgbotapi.KeyboardButton{{button}},
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
	}
}

// handleWebAppData передает сырые данные формы машине состояний
// (переход Submit) и переводит ошибки в тексты для клиента.
func (bh *BotHandler) handleWebAppData(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	username := ""
	if msg.From != nil {
		username = msg.From.UserName
	}
	log.Printf("[MESSAGE_HANDLER] Получены данные формы от chatID %d (%d байт).", chatID, len(msg.WebAppData.Data))

	_, err := bh.Deps.Machine.Submit([]byte(msg.WebAppData.Data), chatID, username)
	if err == nil {
		return
	}

	var validationErr *models.ValidationError
	switch {
	case errors.As(err, &validationErr):
		log.Printf("[MESSAGE_HANDLER] Невалидная форма от chatID %d: %v", chatID, validationErr)
		bh.sendErrorMessageHelper(chatID, 0, fmt.Sprintf("⚠️  Не удалось обработать данные заявки: %s.\n\nПожалуйста, заполните форму еще раз.", validationErr.Cause))
	case errors.Is(err, models.ErrStorage):
		bh.sendErrorMessageHelper(chatID, 0, "⚠️  Произошла ошибка при сохранении заявки. Попробуйте еще раз чуть позже.")
	default:
		log.Printf("[MESSAGE_HANDLER] Неожиданная ошибка Submit для chatID %d: %v", chatID, err)
		bh.sendErrorMessageHelper(chatID, 0, "⚠️  Произошла ошибка. Попробуйте еще раз чуть позже.")
	}
}

// handlePriceInput обрабатывает ответ оператора с ценой в рамках
// текущего контекста назначения цены (переход SetPrice).
func (bh *BotHandler) handlePriceInput(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(strings.ReplaceAll(msg.Text, ",", "."))

	price, err := strconv.ParseFloat(text, 64)
	if err != nil || price <= 0 {
		// Состояние не сбрасываем: ждем корректное число.
		bh.sendErrorMessageHelper(chatID, 0, "Введите цену одним положительным числом, например: 45")
		return
	}

	sess, ok := bh.Deps.SessionManager.GetPricingSession(chatID)
	bh.Deps.SessionManager.ClearState(chatID)
	bh.Deps.SessionManager.ClearPricingSession(chatID)
	if !ok {
		bh.sendErrorMessageHelper(chatID, 0, "Сессия назначения цены устарела. Нажмите «Назначить цену» у заявки еще раз.")
		return
	}

	order, err := bh.Deps.Machine.SetPrice(sess.OrderID, price, sess.AdminMessageID)
	switch {
	case errors.Is(err, models.ErrOrderNotFound):
		// Устаревшая карточка заявки с кнопками правится на месте.
		bh.sendErrorMessageHelper(chatID, sess.AdminMessageID, "Заявка не найдена — возможно, она уже удалена.")
	case errors.Is(err, models.ErrPriceAlreadySet):
		bh.sendErrorMessageHelper(chatID, sess.AdminMessageID, "Цена по этой заявке уже назначена.")
	case err != nil:
		bh.sendErrorMessageHelper(chatID, 0, "Произошла ошибка при назначении цены. Попробуйте еще раз.")
	default:
		confirm := tgbotapi.NewMessage(chatID, fmt.Sprintf("💰  Цена %.0f€ по заявке №%s отправлена клиенту.", price, order.PublicCode))
		if _, sendErr := bh.Deps.BotClient.Send(confirm); sendErr != nil {
			log.Printf("handlePriceInput: не удалось отправить подтверждение оператору: %v", sendErr)
		}
	}
}
