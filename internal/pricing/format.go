package pricing

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var rupiahPrinter = message.NewPrinter(language.Indonesian)

// FormatRupiah renders an amount the way the shop prints prices, e.g. "Rp 50.000".
func FormatRupiah(amount Money) string {
	return rupiahPrinter.Sprintf("Rp %d", amount)
}
