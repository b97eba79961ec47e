package formatters

import (
	"fmt"
	"strings"
	"time"

	"transsfera/internal/models"
)

const divider = "━━━━━━━━━━━━━━━━"

// monthsRu — названия месяцев в родительном падеже для дат в сообщениях.
var monthsRu = map[time.Month]string{
	time.January: "января", time.February: "февраля", time.March: "марта",
	time.April: "апреля", time.May: "мая", time.June: "июня",
	time.July: "июля", time.August: "августа", time.September: "сентября",
	time.October: "октября", time.November: "ноября", time.December: "декабря",
}

// ConvertDate превращает дату формы "2025-06-01" в "1 июня 2025".
// Нераспознанная строка возвращается как есть: лучше показать сырую
// дату, чем уронить уведомление.
func ConvertDate(dateString string) string {
	d, err := time.Parse("2006-01-02", dateString)
	if err != nil {
		return dateString
	}
	return fmt.Sprintf("%d %s %d", d.Day(), monthsRu[d.Month()], d.Year())
}

// FormatMessengers возвращает суффикс к телефону со списком мессенджеров,
// отмеченных клиентом, например " (Viber, WhatsApp)". Пустая строка,
// если не отмечен ни один.
func FormatMessengers(order *models.Order) string {
	var messengers []string
	if order.HasViber {
		messengers = append(messengers, "Viber")
	}
	if order.HasTelegram {
		messengers = append(messengers, "Telegram")
	}
	if order.HasWhatsApp {
		messengers = append(messengers, "WhatsApp")
	}
	if len(messengers) == 0 {
		return ""
	}
	return fmt.Sprintf(" (%s)", strings.Join(messengers, ", "))
}

// FormatUserLink возвращает ссылку на клиента для оператора.
func FormatUserLink(order *models.Order) string {
	if order.Username != "" {
		return "@" + order.Username
	}
	return "(без username)"
}

// ForClient форматирует заявку для чата клиента (HTML-разметка).
// Блок стоимости появляется только после назначения цены; при
// includeConfirmation добавляется вопрос подтверждения поездки.
func ForClient(order *models.Order, includeConfirmation bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>📅  %s • %s</b>\n", ConvertDate(order.Date), order.Time)
	b.WriteString(divider + "\n\n")
	fmt.Fprintf(&b, "📍  Откуда: <blockquote>%s</blockquote>\n", order.FromLocation)
	fmt.Fprintf(&b, "📍  Куда: <blockquote>%s</blockquote>\n\n", order.ToLocation)
	b.WriteString(divider + "\n\n")
	fmt.Fprintf(&b, "👤  Имя: %s\n", order.Name)
	fmt.Fprintf(&b, "📞  Телефон: %s%s\n\n", order.Phone, FormatMessengers(order))
	b.WriteString(divider + "\n\n")
	fmt.Fprintf(&b, "👨‍👩‍👧‍👦  Всего пассажиров: <b>%d</b>\n", order.TotalPassengers())
	fmt.Fprintf(&b, "(из них до 12 лет: <b>%d</b>)\n", order.Children)
	fmt.Fprintf(&b, "🧳  Багажа: <b>%d</b>\n\n", order.Baggage)

	if order.Comment != "" {
		fmt.Fprintf(&b, "💬  Комментарий:\n   \"%s\"\n\n", order.Comment)
	}

	if order.Price.Valid {
		fmt.Fprintf(&b, "%s\n💰  <b>Стоимость: %.0f€</b>", divider, order.Price.Float64)
	}

	if includeConfirmation && order.Price.Valid {
		b.WriteString("\n\n💡  <i>После подтверждения водитель свяжется с вами для уточнения деталей.</i>\n\n<b>Подтверждаете поездку?</b>")
	}

	return b.String()
}

// ForAdmin форматирует заявку для чата оператора: вместо имени первой
// строкой идет ссылка на клиента. extraInfo дописывается в конец как есть.
func ForAdmin(order *models.Order, extraInfo string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>📅  %s • %s</b>\n", ConvertDate(order.Date), order.Time)
	b.WriteString(divider + "\n\n")
	fmt.Fprintf(&b, "📍  Откуда: <blockquote>%s</blockquote>\n", order.FromLocation)
	fmt.Fprintf(&b, "📍  Куда: <blockquote>%s</blockquote>\n\n", order.ToLocation)
	b.WriteString(divider + "\n\n")
	fmt.Fprintf(&b, "👤  %s\n", FormatUserLink(order))
	fmt.Fprintf(&b, "📝  Имя: %s\n", order.Name)
	fmt.Fprintf(&b, "📞  Телефон: %s%s\n\n", order.Phone, FormatMessengers(order))
	b.WriteString(divider + "\n\n")
	fmt.Fprintf(&b, "👨‍👩‍👧‍👦  Всего пассажиров: <b>%d</b>\n", order.TotalPassengers())
	fmt.Fprintf(&b, "(из них до 12 лет: <b>%d</b>)\n", order.Children)
	fmt.Fprintf(&b, "🧳  Багажа: <b>%d</b>\n\n", order.Baggage)

	if order.Comment != "" {
		fmt.Fprintf(&b, "💬  Комментарий:\n   \"%s\"\n\n", order.Comment)
	}

	if order.Price.Valid {
		fmt.Fprintf(&b, "%s\n💰  <b>Стоимость: %.0f€</b>", divider, order.Price.Float64)
	}

	if extraInfo != "" {
		b.WriteString(extraInfo)
	}

	return b.String()
}
