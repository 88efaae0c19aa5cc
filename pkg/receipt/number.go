package receipt

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// NumberPrefix heads every generated receipt number.
const NumberPrefix = "RCT"

// NewNumber generates a receipt number from the current time plus a random
// suffix. Uniqueness is probabilistic, not guaranteed; collisions are accepted
// as negligible rather than eliminated.
func NewNumber(now time.Time) string {
	suffix := make([]byte, 3)
	if _, err := rand.Read(suffix); err != nil {
		// Fall back to the clock's sub-second component.
		return fmt.Sprintf("%s-%s-%06d", NumberPrefix, now.UTC().Format("20060102150405"), now.Nanosecond()/1000%1000000)
	}
	return fmt.Sprintf("%s-%s-%s", NumberPrefix, now.UTC().Format("20060102150405"), strings.ToUpper(hex.EncodeToString(suffix)))
}

// VerificationPayload is the scannable code embedded in a receipt. It is
// display-only; no verification endpoint consumes it.
func VerificationPayload(receiptNumber, admissionNumber string) string {
	return receiptNumber + "-" + admissionNumber
}

// FormatAmount renders an integer amount with thousands separators, the way
// the printed receipts group digits.
func FormatAmount(amount int64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}
	digits := fmt.Sprintf("%d", amount)
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
		if len(digits) > lead {
			b.WriteString(",")
		}
	}
	for i := lead; i < len(digits); i += 3 {
		b.WriteString(digits[i : i+3])
		if i+3 < len(digits) {
			b.WriteString(",")
		}
	}
	if negative {
		return "-" + b.String()
	}
	return b.String()
}
