package handlers

import (
	"log"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/skip2/go-qrcode"
)

// handleQRCommand отправляет оператору QR-код со ссылкой на форму
// заказа — для печати на визитках и стойках.
func (bh *BotHandler) handleQRCommand(chatID int64) {
	link := "https://" + bh.Deps.Config.WebAppURL
	// qrcode.Medium — уровень коррекции ошибок, 512 — размер в пикселях.
	qrBytes, err := qrcode.Encode(link, qrcode.Medium, 512)
	if err != nil {
		log.Printf("handleQRCommand: ошибка генерации QR-кода для '%s': %v", link, err)
		bh.sendErrorMessageHelper(chatID, 0, "Не удалось сгенерировать QR-код.")
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "transsfera_qr.png", Bytes: qrBytes})
	photo.Caption = "QR-код формы заказа трансфера:\n" + link
	if _, err := bh.Deps.BotClient.Send(photo); err != nil {
		log.Printf("handleQRCommand: не удалось отправить QR-код оператору %d: %v", chatID, err)
	}
}
