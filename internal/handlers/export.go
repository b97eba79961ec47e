package handlers

import (
	"fmt"
	"log"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/xuri/excelize/v2"

	"transsfera/internal/models"
)

// exportHeaders — колонки выгрузки заявок.
var exportHeaders = []string{
	"Код", "Дата", "Время", "Откуда", "Куда",
	"Взрослых", "Детей", "Багаж", "Имя", "Телефон",
	"Комментарий", "Цена, €", "Подтверждена", "Создана (UTC)",
}

// BuildOrdersWorkbook собирает XLSX-книгу с текущими заявками.
func BuildOrdersWorkbook(orders []models.Order) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "Sheet1"

	for i, header := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}

	for rowIdx, order := range orders {
		accepted := "нет"
		if order.Accepted {
			accepted = "да"
		}
		var price interface{} = ""
		if order.Price.Valid {
			price = order.Price.Float64
		}
		values := []interface{}{
			order.PublicCode, order.Date, order.Time, order.FromLocation, order.ToLocation,
			order.Adults, order.Children, order.Baggage, order.Name, order.Phone,
			order.Comment, price, accepted, order.CreatedAt.Format("2006-01-02 15:04"),
		}
		for colIdx, value := range values {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	return f, nil
}

// handleExportCommand отправляет оператору XLSX-снимок текущих заявок.
func (bh *BotHandler) handleExportCommand(chatID int64) {
	orders, err := bh.Deps.Store.ListActive()
	if err != nil {
		log.Printf("handleExportCommand: ошибка выборки заявок: %v", err)
		bh.sendErrorMessageHelper(chatID, 0, "Не удалось выгрузить заявки. Попробуйте еще раз.")
		return
	}
	if len(orders) == 0 {
		bh.sendErrorMessageHelper(chatID, 0, "Активных заявок нет.")
		return
	}

	workbook, err := BuildOrdersWorkbook(orders)
	if err != nil {
		log.Printf("handleExportCommand: ошибка формирования книги: %v", err)
		bh.sendErrorMessageHelper(chatID, 0, "Не удалось сформировать файл выгрузки.")
		return
	}

	buf, err := workbook.WriteToBuffer()
	if err != nil {
		log.Printf("handleExportCommand: ошибка записи книги в буфер: %v", err)
		bh.sendErrorMessageHelper(chatID, 0, "Не удалось сформировать файл выгрузки.")
		return
	}

	fileName := fmt.Sprintf("transsfera_orders_%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: fileName, Bytes: buf.Bytes()})
	doc.Caption = fmt.Sprintf("📋  Текущие заявки: %d", len(orders))
	if _, err := bh.Deps.BotClient.Send(doc); err != nil {
		log.Printf("handleExportCommand: не удалось отправить файл оператору %d: %v", chatID, err)
	}
}
