package handlers

import (
	"log"

	"transsfera/internal/config"
	"transsfera/internal/negotiation"
	"transsfera/internal/session"
	"transsfera/internal/telegram_api"
)

// HandlerDependencies содержит все зависимости, необходимые для обработчиков.
// HandlerDependencies contains all dependencies required for handlers.
type HandlerDependencies struct {
	Config         *config.Config
	BotClient      *telegram_api.BotClient
	SessionManager *session.SessionManager
	Machine        *negotiation.Machine
	Store          negotiation.OrderStore
	Gateway        negotiation.Gateway
}

// BotHandler инкапсулирует логику обработки сообщений и коллбэков.
// BotHandler encapsulates the logic for handling messages and callbacks.
type BotHandler struct {
	Deps HandlerDependencies
}

// NewBotHandler создает новый экземпляр BotHandler.
func NewBotHandler(deps HandlerDependencies) *BotHandler {
	if deps.Config == nil || deps.BotClient == nil || deps.SessionManager == nil ||
		deps.Machine == nil || deps.Store == nil || deps.Gateway == nil {
		// Критическая ошибка конфигурации: без зависимостей бот неработоспособен.
		panic("Не все зависимости для BotHandler были предоставлены.")
	}
	return &BotHandler{Deps: deps}
}

// isAdminChat сообщает, пришло ли событие из чата оператора.
func (bh *BotHandler) isAdminChat(chatID int64) bool {
	return chatID == bh.Deps.Config.AdminChatID
}

// sendErrorMessageHelper отправляет пользователю текст ошибки.
func (bh *BotHandler) sendErrorMessageHelper(chatID int64, messageID int, text string) {
	if _, err := telegram_api.SendErrorMessage(bh.Deps.BotClient, chatID, messageID, text); err != nil {
		log.Printf("sendErrorMessageHelper: не удалось отправить сообщение об ошибке для chatID %d: %v", chatID, err)
	}
}
