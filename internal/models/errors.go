package models

import (
	"errors"
	"fmt"
)

// Ошибки уровня домена. Обработчики сопоставляют их с текстами уведомлений
// для клиента и оператора; наружу из диспетчера они не выходят.
// Domain-level errors. Handlers map them to notification texts for the
// client and the operator; they never escape the dispatcher.
var (
	// ErrOrderNotFound — заявка отсутствует в хранилище (уже удалена или
	// никогда не существовала). Не фатальная ситуация.
	ErrOrderNotFound = errors.New("заявка не найдена")

	// ErrPriceAlreadySet — попытка повторно назначить цену. Цена
	// назначается ровно один раз.
	ErrPriceAlreadySet = errors.New("цена уже назначена")

	// ErrOrderAccepted — заявка уже подтверждена клиентом; подтвержденные
	// заявки не удаляются путями отказа.
	ErrOrderAccepted = errors.New("заявка уже подтверждена")

	// ErrStorage — сбой хранилища; актору показывается просьба повторить.
	ErrStorage = errors.New("ошибка хранилища")
)

// ValidationError описывает некорректные данные формы заявки.
// Запись при этом не создается.
type ValidationError struct {
	Cause string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("некорректные данные заявки: %s", e.Cause)
}

// NewValidationError создает ValidationError с форматированной причиной.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Cause: fmt.Sprintf(format, args...)}
}
