package db

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"transsfera/internal/models"
)

// orderColumns — единый список колонок для выборок и RETURNING, чтобы
// scanOrder всегда получал поля в одном порядке.
const orderColumns = `id, public_code, client_chat_id, username, date, time,
    from_location, to_location, adults, children, baggage,
    name, phone, has_viber, has_telegram, has_whatsapp,
    comment, price, accepted, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (models.Order, error) {
	var o models.Order
	err := row.Scan(
		&o.ID, &o.PublicCode, &o.ClientChatID, &o.Username, &o.Date, &o.Time,
		&o.FromLocation, &o.ToLocation, &o.Adults, &o.Children, &o.Baggage,
		&o.Name, &o.Phone, &o.HasViber, &o.HasTelegram, &o.HasWhatsApp,
		&o.Comment, &o.Price, &o.Accepted, &o.CreatedAt,
	)
	return o, err
}

// CreateOrder сохраняет новую заявку и возвращает назначенный ID (UUID).
func CreateOrder(order models.Order) (string, error) {
	id := uuid.New().String()
	_, err := DB.Exec(`
        INSERT INTO orders (
            id, public_code, client_chat_id, username, date, time,
            from_location, to_location, adults, children, baggage,
            name, phone, has_viber, has_telegram, has_whatsapp,
            comment, price, accepted, created_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
                $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		id, order.PublicCode, order.ClientChatID, order.Username, order.Date, order.Time,
		order.FromLocation, order.ToLocation, order.Adults, order.Children, order.Baggage,
		order.Name, order.Phone, order.HasViber, order.HasTelegram, order.HasWhatsApp,
		order.Comment, order.Price, order.Accepted, order.CreatedAt,
	)
	if err != nil {
		log.Printf("CreateOrder: ошибка выполнения INSERT для заявки №%s (клиент %d): %v", order.PublicCode, order.ClientChatID, err)
		return "", err
	}
	log.Printf("Заявка №%s (id=%s) сохранена для клиента chat_id %d.", order.PublicCode, id, order.ClientChatID)
	return id, nil
}

// GetOrderByID извлекает заявку по ее ID.
// Отсутствие записи — models.ErrOrderNotFound, а не сбой.
func GetOrderByID(id string) (models.Order, error) {
	row := DB.QueryRow(`SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return models.Order{}, models.ErrOrderNotFound
	}
	if err != nil {
		log.Printf("GetOrderByID: ошибка чтения заявки id=%s: %v", id, err)
		return models.Order{}, err
	}
	return order, nil
}

// SetOrderPrice атомарно назначает цену, только если она еще не
// назначена, и возвращает обновленную запись. Условие price IS NULL —
// единственный арбитр «цена уже была»: повторная отправка со старой
// кнопки не перезапишет цену даже при гонке.
func SetOrderPrice(id string, price float64) (models.Order, error) {
	row := DB.QueryRow(`
        UPDATE orders SET price=$2
        WHERE id=$1 AND price IS NULL
        RETURNING `+orderColumns, id, price)
	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		// Либо заявки нет, либо цена уже назначена — различаем повторным чтением.
		if _, getErr := GetOrderByID(id); getErr != nil {
			return models.Order{}, getErr
		}
		return models.Order{}, models.ErrPriceAlreadySet
	}
	if err != nil {
		log.Printf("SetOrderPrice: ошибка назначения цены %.0f заявке id=%s: %v", price, id, err)
		return models.Order{}, err
	}
	return order, nil
}

// AcceptOrder атомарно помечает заявку подтвержденной, только если она
// еще не подтверждена, и возвращает обновленную запись.
func AcceptOrder(id string) (models.Order, error) {
	row := DB.QueryRow(`
        UPDATE orders SET accepted=TRUE
        WHERE id=$1 AND accepted=FALSE
        RETURNING `+orderColumns, id)
	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		if _, getErr := GetOrderByID(id); getErr != nil {
			return models.Order{}, getErr
		}
		return models.Order{}, models.ErrOrderAccepted
	}
	if err != nil {
		log.Printf("AcceptOrder: ошибка подтверждения заявки id=%s: %v", id, err)
		return models.Order{}, err
	}
	return order, nil
}

// UpdateOrderFields применяет частичное обновление разрешенных полей и
// возвращает запись целиком после слияния: тексты уведомлений строятся
// по возвращенному значению, а не по данным вызывающего.
func UpdateOrderFields(id string, fields map[string]interface{}) (models.Order, error) {
	allowedFields := map[string]bool{
		"date": true, "time": true, "from_location": true, "to_location": true,
		"adults": true, "children": true, "baggage": true,
		"name": true, "phone": true, "comment": true,
		"has_viber": true, "has_telegram": true, "has_whatsapp": true,
		"price": true, "accepted": true,
	}

	setClauses := make([]string, 0, len(fields))
	args := make([]interface{}, 0, len(fields)+1)
	args = append(args, id)
	for field, value := range fields {
		if !allowedFields[field] {
			return models.Order{}, fmt.Errorf("обновление поля '%s' не разрешено через UpdateOrderFields", field)
		}
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s=$%d", field, len(args)))
	}
	if len(setClauses) == 0 {
		return GetOrderByID(id)
	}

	query := fmt.Sprintf("UPDATE orders SET %s WHERE id=$1 RETURNING %s",
		strings.Join(setClauses, ", "), orderColumns)
	order, err := scanOrder(DB.QueryRow(query, args...))
	if err == sql.ErrNoRows {
		return models.Order{}, models.ErrOrderNotFound
	}
	if err != nil {
		log.Printf("UpdateOrderFields: ошибка обновления заявки id=%s: %v", id, err)
		return models.Order{}, err
	}
	return order, nil
}

// DeleteOrder атомарно удаляет заявку, только если она еще не
// подтверждена, и возвращает удаленную запись. Условие accepted=FALSE —
// единственный арбитр: подтверждение, пришедшее параллельно с отказом,
// выигрывает, и подтвержденная заявка путем отказа не удаляется.
func DeleteOrder(id string) (models.Order, error) {
	row := DB.QueryRow(`
        DELETE FROM orders
        WHERE id=$1 AND accepted=FALSE
        RETURNING `+orderColumns, id)
	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		// Либо заявки нет, либо она подтверждена — различаем повторным чтением.
		if _, getErr := GetOrderByID(id); getErr != nil {
			return models.Order{}, getErr
		}
		return models.Order{}, models.ErrOrderAccepted
	}
	if err != nil {
		log.Printf("DeleteOrder: ошибка удаления заявки id=%s: %v", id, err)
		return models.Order{}, err
	}
	log.Printf("Заявка №%s (id=%s) удалена.", order.PublicCode, id)
	return order, nil
}

// GetActiveOrders возвращает все текущие заявки, новые первыми.
func GetActiveOrders() ([]models.Order, error) {
	rows, err := DB.Query(`SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`)
	if err != nil {
		log.Printf("GetActiveOrders: ошибка выборки заявок: %v", err)
		return nil, err
	}
	defer rows.Close()

	var result []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			log.Printf("GetActiveOrders: ошибка сканирования строки: %v", err)
			return nil, err
		}
		result = append(result, order)
	}
	return result, rows.Err()
}
