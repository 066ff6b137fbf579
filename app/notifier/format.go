package notifier

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var gbp = message.NewPrinter(language.BritishEnglish)

// FormatPrice renders a whole-pound amount with grouping, e.g. £1,250,000
func FormatPrice(amount int) string {
	return gbp.Sprintf("£%d", amount)
}
