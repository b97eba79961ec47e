package orders

import (
	"encoding/json"
	"math/rand/v2"
	"strings"
	"time"

	"transsfera/internal/models"
)

// orderPayload — форма заявки, как ее присылает WebApp через
// web_app_data (плоский JSON-объект).
// orderPayload — the request form as sent by the WebApp via
// web_app_data (a flat JSON object).
type orderPayload struct {
	Name         string  `json:"name"`
	Phone        string  `json:"phone"`
	Date         string  `json:"date"`
	Time         string  `json:"time"`
	FromLocation string  `json:"from_location"`
	ToLocation   string  `json:"to_location"`
	Adults       int     `json:"adults"`
	Children     int     `json:"children"`
	Baggage      int     `json:"baggage"`
	HasViber     bool    `json:"hasViber"`
	HasTelegram  bool    `json:"hasTelegram"`
	HasWhatsApp  bool    `json:"hasWhatsApp"`
	Comment      string  `json:"comment"`
}

// ParseOrder валидирует сырые данные формы и собирает заявку.
// Ничего не сохраняет: запись возвращается вызывающему для сохранения.
// При любых некорректных данных возвращает *models.ValidationError.
// ParseOrder validates raw form data and builds an order.
// Persists nothing: the record is returned to the caller to store.
// Returns *models.ValidationError on any malformed input.
func ParseOrder(raw []byte, chatID int64, username string) (models.Order, error) {
	var p orderPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return models.Order{}, models.NewValidationError("ошибка разбора JSON: %v", err)
	}

	required := []struct {
		value string
		label string
	}{
		{p.Name, "имя"},
		{p.Phone, "телефон"},
		{p.Date, "дата"},
		{p.Time, "время"},
		{p.FromLocation, "место отправления"},
		{p.ToLocation, "место назначения"},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return models.Order{}, models.NewValidationError("не заполнено поле «%s»", f.label)
		}
	}

	if _, err := time.Parse("2006-01-02", p.Date); err != nil {
		return models.Order{}, models.NewValidationError("некорректная дата '%s' (ожидается YYYY-MM-DD)", p.Date)
	}
	if p.Adults < 0 || p.Children < 0 || p.Baggage < 0 {
		return models.Order{}, models.NewValidationError("количество пассажиров и багажа не может быть отрицательным")
	}
	if p.Adults+p.Children == 0 {
		return models.Order{}, models.NewValidationError("в заявке нет ни одного пассажира")
	}

	order := models.Order{
		PublicCode:   GeneratePublicCode(),
		ClientChatID: chatID,
		Username:     username,
		Date:         p.Date,
		Time:         p.Time,
		FromLocation: strings.TrimSpace(p.FromLocation),
		ToLocation:   strings.TrimSpace(p.ToLocation),
		Adults:       p.Adults,
		Children:     p.Children,
		Baggage:      p.Baggage,
		Name:         strings.TrimSpace(p.Name),
		Phone:        strings.TrimSpace(p.Phone),
		HasViber:     p.HasViber,
		HasTelegram:  p.HasTelegram,
		HasWhatsApp:  p.HasWhatsApp,
		Comment:      strings.TrimSpace(p.Comment),
		Accepted:     false,
		CreatedAt:    time.Now().UTC(),
	}
	return order, nil
}

const publicCodeDigits = 4

// GeneratePublicCode возвращает короткий код заявки: одна заглавная
// латинская буква и 4 цифры, каждая выбирается равномерно и независимо.
// Уникальность по существующим заявкам не проверяется — вероятность
// коллизии мала, основным ключом остается ID хранилища.
func GeneratePublicCode() string {
	var b strings.Builder
	b.WriteByte(byte('A' + rand.IntN(26)))
	for i := 0; i < publicCodeDigits; i++ {
		b.WriteByte(byte('0' + rand.IntN(10)))
	}
	return b.String()
}
