package telegram_api

import (
	"fmt"
	"strings"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"transsfera/internal/negotiation"
)

// Gateway адаптирует BotClient под контракт negotiation.Gateway:
// машина состояний оперирует абстрактными кнопками, здесь они
// превращаются в inline-разметку Telegram с callback data "action:id".
type Gateway struct {
	client *BotClient
}

// NewGateway создает шлюз поверх инициализированного BotClient.
func NewGateway(client *BotClient) *Gateway {
	return &Gateway{client: client}
}

// RenderButtons превращает ряды абстрактных кнопок в inline-клавиатуру.
func RenderButtons(rows [][]negotiation.Button) *tgbotapi.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	var keyboardRows [][]tgbotapi.InlineKeyboardButton
	for _, row := range rows {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, b := range row {
			data := fmt.Sprintf("%s:%s", b.Action, b.OrderID)
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(b.Label, data))
		}
		keyboardRows = append(keyboardRows, keyboardRow)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(keyboardRows...)
	return &markup
}

// Send отправляет HTML-сообщение и возвращает ID отправленного сообщения.
func (g *Gateway) Send(chatID int64, text string, buttons [][]negotiation.Button) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if kb := RenderButtons(buttons); kb != nil {
		msg.ReplyMarkup = kb
	}
	sent, err := g.client.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// Edit правит текст и кнопки ранее отправленного сообщения на месте.
// "message is not modified" не считается ошибкой.
func (g *Gateway) Edit(chatID int64, messageID int, text string, buttons [][]negotiation.Button) error {
	var cfg tgbotapi.EditMessageTextConfig
	if kb := RenderButtons(buttons); kb != nil {
		cfg = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, *kb)
	} else {
		cfg = tgbotapi.NewEditMessageText(chatID, messageID, text)
	}
	cfg.ParseMode = tgbotapi.ModeHTML

	_, err := g.client.Request(cfg)
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}

// ClearButtons убирает inline-кнопки у сообщения, не меняя текст.
func (g *Gateway) ClearButtons(chatID int64, messageID int) error {
	// Пустая (не nil) клавиатура: Telegram ожидает {"inline_keyboard":[]}.
	empty := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
	cfg := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, empty)
	_, err := g.client.Request(cfg)
	if err != nil && (strings.Contains(err.Error(), "message is not modified") ||
		strings.Contains(err.Error(), "message to edit not found")) {
		return nil
	}
	return err
}
