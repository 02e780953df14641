package listing

import (
	"errors"
	"math"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatPrice renders an amount in minor units with the currency symbol,
// e.g. 12345050 USD as "$ 123,450.50".
func FormatPrice(minor int64, code string) (string, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", errors.Join(ErrInvalidInput, err)
	}

	scale, _ := currency.Standard.Rounding(unit)
	amount := float64(minor) / math.Pow10(scale)

	return printer.Sprint(currency.Symbol(unit.Amount(amount))), nil
}
