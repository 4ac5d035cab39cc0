package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/imrishuroy/shop-orderflow/internal/telegram"
	"github.com/imrishuroy/shop-orderflow/internal/validation"
)

// formatOrderMessage builds the Markdown summary sent to the shop's chat. id
// is zero when the order was not saved.
func formatOrderMessage(req validation.CreateOrderRequest, id int64, saved bool, now time.Time, loc *time.Location) string {
	var b strings.Builder

	b.WriteString("🆕 *Новый заказ*")
	if id != 0 {
		fmt.Fprintf(&b, " #%d", id)
	}
	b.WriteString("!\n\n")

	fmt.Fprintf(&b, "👤 *Клиент:* %s\n", telegram.Escape(req.Customer.Name))
	fmt.Fprintf(&b, "📱 *Телефон:* %s\n", telegram.Escape(req.Customer.Phone))
	fmt.Fprintf(&b, "📍 *Адрес:* %s\n", telegram.Escape(req.Customer.Address))
	if req.Customer.Comment != "" {
		fmt.Fprintf(&b, "💬 *Комментарий:* %s\n", telegram.Escape(req.Customer.Comment))
	}

	b.WriteString("\n📦 *Товары:*\n")
	for i, it := range req.Items {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, telegram.Escape(it.Name))
		fmt.Fprintf(&b, "   Размер: %s | Цвет: %s\n", telegram.Escape(it.SelectedSize), telegram.Escape(it.SelectedColor.Name))
		fmt.Fprintf(&b, "   Цена: %s\n", telegram.Money(it.Price))
	}

	fmt.Fprintf(&b, "\n💰 *Итого:* %s\n\n", telegram.Money(req.Total))
	if saved {
		b.WriteString("✅ Сохранено в БД\n")
	} else {
		b.WriteString("⚠️ БД не подключена\n")
	}
	b.WriteString(telegram.Timestamp(now, loc))
	return b.String()
}
