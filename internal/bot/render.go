package bot

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/imrishuroy/shop-orderflow/internal/orders"
	"github.com/imrishuroy/shop-orderflow/internal/telegram"
)

// listLimit caps the rows of a list view.
const listLimit = 10

// Fixed replies.
const (
	textDenied        = "❌ Нет доступа"
	textNotFound      = "❌ Заказ не найден"
	textLoading       = "⏳ Загрузка..."
	textUnknownAction = "❌ Неизвестное действие"
	textUpdateFailed  = "❌ Ошибка обновления"
	textDeleteFailed  = "❌ Ошибка удаления"
	textDeleted       = "✅ Заказ удалён"
	textReloadFailed  = "❌ Ошибка загрузки заказов"
	textRefreshed     = "🔄 Обновлено"
)

// view is a message ready to be sent: Markdown text and optional buttons.
type view struct {
	text     string
	keyboard *tgbotapi.InlineKeyboardMarkup
}

func button(label string, a Action) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(label, a.Token())
}

func keyboard(rows ...[]tgbotapi.InlineKeyboardButton) *tgbotapi.InlineKeyboardMarkup {
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func startView() view {
	text := "👋 *Добро пожаловать в админку магазина!*\n\n" +
		"📊 *Возможности:*\n" +
		"• Просмотр всех заказов\n" +
		"• Изменение статуса\n" +
		"• Удаление заказов\n" +
		"• Статистика\n\n" +
		"/orders - Все заказы\n" +
		"/new - Только новые\n" +
		"/stats - Статистика"
	return view{
		text: text,
		keyboard: keyboard(
			tgbotapi.NewInlineKeyboardRow(button("📋 Заказы", ShowList{Filter: FilterAll})),
			tgbotapi.NewInlineKeyboardRow(button("🆕 Новые", ShowList{Filter: Filter(orders.StatusNew)})),
			tgbotapi.NewInlineKeyboardRow(button("📊 Статистика", ShowStats{})),
		),
	}
}

func filterRows() [][]tgbotapi.InlineKeyboardButton {
	return [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			button("🆕 Новые", ShowList{Filter: Filter(orders.StatusNew)}),
			button("✅ Подтвержденные", ShowList{Filter: Filter(orders.StatusConfirmed)}),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("🚚 Доставленные", ShowList{Filter: Filter(orders.StatusDelivered)}),
			button("❌ Отменённые", ShowList{Filter: Filter(orders.StatusCancelled)}),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("📋 Все", ShowList{Filter: FilterAll}),
			button("🔄 Обновить", Refresh{}),
		),
	}
}

// listView renders up to listLimit of matched, in the order given.
func listView(matched []orders.Order, f Filter) view {
	if len(matched) == 0 {
		return view{
			text:     fmt.Sprintf("📭 Заказов не найдено (фильтр: %s)", f),
			keyboard: keyboard(filterRows()...),
		}
	}

	shown := matched
	if len(shown) > listLimit {
		shown = shown[:listLimit]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 *Заказы* (%d всего)\n\n", len(matched))
	var open []tgbotapi.InlineKeyboardButton
	for i, o := range shown {
		fmt.Fprintf(&b, "%d. #%d - %s\n", i+1, o.ID, telegram.Escape(o.CustomerName))
		fmt.Fprintf(&b, "   📦 %d товаров | 💰 %s\n", len(o.Items), telegram.Money(o.Total))
		fmt.Fprintf(&b, "   %s %s\n", o.Status.Icon(), o.Status.Label())
		fmt.Fprintf(&b, "   📞 %s\n\n", telegram.Escape(o.CustomerPhone))
		open = append(open, button(fmt.Sprintf("#%d", o.ID), OpenOrder{ID: o.ID}))
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for len(open) > 0 {
		n := min(5, len(open))
		rows = append(rows, open[:n])
		open = open[n:]
	}
	rows = append(rows, filterRows()...)
	return view{text: strings.TrimRight(b.String(), "\n"), keyboard: keyboard(rows...)}
}

func detailView(o orders.Order, loc *time.Location) view {
	var b strings.Builder
	fmt.Fprintf(&b, "📦 *Заказ #%d*\n\n", o.ID)
	fmt.Fprintf(&b, "👤 *Клиент:* %s\n", telegram.Escape(o.CustomerName))
	fmt.Fprintf(&b, "📱 *Телефон:* %s\n", telegram.Escape(o.CustomerPhone))
	fmt.Fprintf(&b, "📍 *Адрес:* %s\n", telegram.Escape(o.CustomerAddress))
	if o.CustomerComment != "" {
		fmt.Fprintf(&b, "💬 *Комментарий:* %s\n", telegram.Escape(o.CustomerComment))
	}

	b.WriteString("\n📦 *Товары:*\n")
	for i, it := range o.Items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, telegram.Escape(it.Name))
		fmt.Fprintf(&b, "   Размер: %s | Цвет: %s\n", telegram.Escape(it.SelectedSize), telegram.Escape(it.SelectedColor.Name))
		fmt.Fprintf(&b, "   %s\n", telegram.Money(it.Price))
	}

	fmt.Fprintf(&b, "\n💰 *Итого:* %s\n", telegram.Money(o.Total))
	fmt.Fprintf(&b, "%s *Статус:* %s\n", o.Status.Icon(), o.Status.Label())
	fmt.Fprintf(&b, "📅 %s", telegram.Timestamp(o.CreatedAt, loc))

	return view{
		text: b.String(),
		keyboard: keyboard(
			tgbotapi.NewInlineKeyboardRow(
				button("✅ Подтвердить", SetStatus{ID: o.ID, Status: orders.StatusConfirmed}),
				button("🚚 Доставлен", SetStatus{ID: o.ID, Status: orders.StatusDelivered}),
			),
			tgbotapi.NewInlineKeyboardRow(
				button("❌ Отменить", SetStatus{ID: o.ID, Status: orders.StatusCancelled}),
				button("🗑️ Удалить", DeleteOrder{ID: o.ID}),
			),
			tgbotapi.NewInlineKeyboardRow(button("◀️ Назад", ShowList{Filter: FilterAll})),
		),
	}
}

var statsLines = []struct {
	status orders.Status
	label  string
}{
	{orders.StatusNew, "Новых"},
	{orders.StatusConfirmed, "Подтвержденных"},
	{orders.StatusDelivered, "Доставленных"},
	{orders.StatusCancelled, "Отменённых"},
}

// statsView renders s; withBack adds a button back to the list.
func statsView(s Stats, withBack bool) view {
	var b strings.Builder
	b.WriteString("📊 *СТАТИСТИКА*\n\n")
	fmt.Fprintf(&b, "📋 Всего заказов: %d\n", s.Count)
	for _, l := range statsLines {
		fmt.Fprintf(&b, "%s %s: %d\n", l.status.Icon(), l.label, s.ByStatus[l.status])
	}
	fmt.Fprintf(&b, "\n💰 Общая сумма: %s\n", telegram.Money(s.Sum))
	fmt.Fprintf(&b, "📈 Средний заказ: %s", telegram.Money(s.Mean))

	v := view{text: b.String()}
	if withBack {
		v.keyboard = keyboard(tgbotapi.NewInlineKeyboardRow(button("◀️ Назад", ShowList{Filter: FilterAll})))
	}
	return v
}

func newOrderView(o orders.Order) view {
	var b strings.Builder
	fmt.Fprintf(&b, "🆕 *НОВЫЙ ЗАКАЗ #%d*\n\n", o.ID)
	fmt.Fprintf(&b, "👤 %s\n", telegram.Escape(o.CustomerName))
	fmt.Fprintf(&b, "📱 %s\n", telegram.Escape(o.CustomerPhone))
	fmt.Fprintf(&b, "📍 %s\n\n", telegram.Escape(o.CustomerAddress))
	fmt.Fprintf(&b, "📦 Товаров: %d\n", len(o.Items))
	fmt.Fprintf(&b, "💰 Сумма: %s", telegram.Money(o.Total))
	if o.CustomerComment != "" {
		fmt.Fprintf(&b, "\n\n💬 %s", telegram.Escape(o.CustomerComment))
	}
	return view{
		text: b.String(),
		keyboard: keyboard(
			tgbotapi.NewInlineKeyboardRow(button("📋 Открыть", OpenOrder{ID: o.ID})),
			tgbotapi.NewInlineKeyboardRow(button("✅ Подтвердить", SetStatus{ID: o.ID, Status: orders.StatusConfirmed})),
		),
	}
}

func statusChangedText(s orders.Status) string {
	return "✅ Статус изменён на " + s.Label()
}
