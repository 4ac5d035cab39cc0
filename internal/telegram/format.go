package telegram

import (
	"math"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency is appended to every amount shown to humans.
const Currency = "₸"

var printer = message.NewPrinter(language.Russian)

// Amount renders v with Russian digit grouping, e.g. "15 000".
func Amount(v float64) string {
	if v == math.Trunc(v) {
		return printer.Sprintf("%.0f", v)
	}
	return printer.Sprintf("%.2f", v)
}

// Money is Amount followed by the currency sign.
func Money(v float64) string {
	return Amount(v) + " " + Currency
}

// Escape makes user supplied text safe inside a Markdown message.
func Escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

// Timestamp renders t the way the shop staff read dates: 15.10.2026, 14:03:00.
func Timestamp(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("02.01.2006, 15:04:05")
}
