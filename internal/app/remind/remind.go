// Package remind builds WhatsApp click-to-chat links that remind a customer
// of their balance.
package remind

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultSymbol prefixes formatted amounts when no symbol is configured.
const DefaultSymbol = "₹"

const baseURL = "https://wa.me/"

// Reminder renders reminder messages with a configurable currency symbol.
type Reminder struct {
	Symbol string
}

// New creates a Reminder. An empty symbol falls back to DefaultSymbol.
func New(symbol string) Reminder {
	if symbol == "" {
		symbol = DefaultSymbol
	}
	return Reminder{Symbol: symbol}
}

// Message returns the text sent to the customer. A positive balance asks for
// settlement; anything else thanks the customer and states the absolute
// balance.
func (r Reminder) Message(name string, balance decimal.Decimal) string {
	if balance.IsPositive() {
		return fmt.Sprintf("Hello %s, this is a reminder regarding your outstanding balance of %s. "+
			"Please settle it at your earliest convenience. Thank you!", name, r.Format(balance))
	}
	return fmt.Sprintf("Hello %s, thank you for your recent payment. Your current balance is %s. "+
		"Have a great day!", name, r.Format(balance.Abs()))
}

// Link returns https://wa.me/<digits>?text=<message>. Every non-digit is
// stripped from phone.
func (r Reminder) Link(phone, name string, balance decimal.Decimal) string {
	return baseURL + Digits(phone) + "?text=" + escapeComponent(r.Message(name, balance))
}

// Format renders d with the reminder's symbol, two decimals and lakh/crore
// grouping, e.g. ₹1,23,456.00.
func (r Reminder) Format(d decimal.Decimal) string {
	return formatGrouped(r.Symbol, d)
}

// Digits returns only the ASCII digits of s.
func Digits(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

func formatGrouped(symbol string, d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	fixed := d.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	return sign + symbol + groupIndian(whole) + "." + frac
}

// groupIndian inserts a comma before the last three digits and then after
// every two digits to the left of that.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	parts = append([]string{head}, parts...)
	return strings.Join(parts, ",") + "," + tail
}

// componentFixer undoes the differences between url.QueryEscape and the
// URI-component escaping that wa.me links conventionally use.
var componentFixer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func escapeComponent(s string) string {
	return componentFixer.Replace(url.QueryEscape(s))
}
