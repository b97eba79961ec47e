package models

import (
	"database/sql"
	"time"
)

// Order — заявка на трансфер. Центральная сущность: создается из данных
// формы WebApp, проходит через согласование цены и либо подтверждается,
// либо удаляется при отказе.
// Order — a transfer request. The central entity: built from the WebApp
// form data, goes through price negotiation and is either confirmed or
// deleted on decline.
type Order struct {
	ID           string // Назначается хранилищем (UUID) / Assigned by the store (UUID)
	PublicCode   string // Короткий код для людей, например "A1234". Назначается один раз при создании.
	ClientChatID int64  // chat_id клиента в Telegram
	Username     string // @username клиента, может быть пустым

	// Дата и время поездки хранятся раздельно, как пришли из формы.
	// Никакой нормализации часовых поясов не выполняется.
	Date string // "YYYY-MM-DD"
	Time string // "HH:MM"

	FromLocation string
	ToLocation   string

	Adults   int
	Children int
	Baggage  int

	Name  string
	Phone string

	HasViber    bool
	HasTelegram bool
	HasWhatsApp bool

	Comment string

	// Цена назначается оператором ровно один раз; до этого отсутствует.
	// Price is set by the operator exactly once; absent before that.
	Price    sql.NullFloat64
	Accepted bool

	CreatedAt time.Time // UTC
}

// TotalPassengers возвращает общее число пассажиров.
func (o *Order) TotalPassengers() int {
	return o.Adults + o.Children
}
