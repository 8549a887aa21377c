package service

import (
	"fmt"
	"strings"

	"github.com/nouranfeh/wabills/internal/models"
)

// BillingConfig holds the company constants rendered into every bill
// message. Values come from configuration with the product defaults.
type BillingConfig struct {
	CompanyName        string
	CompanyPhone       string
	PaymentDeadlineDay int
	CurrencyNote       string
}

// monthsAR maps the two-digit month number to its Levantine Arabic name.
var monthsAR = map[string]string{
	"01": "كانون الثاني", "02": "شباط", "03": "آذار", "04": "نيسان",
	"05": "أيار", "06": "حزيران", "07": "تموز", "08": "آب",
	"09": "أيلول", "10": "تشرين الأول", "11": "تشرين الثاني", "12": "كانون الأول",
}

// MonthName resolves a "01".."12" month number to its Arabic name, with a
// dash placeholder for anything unrecognized.
func MonthName(num string) string {
	if name, ok := monthsAR[strings.TrimSpace(num)]; ok {
		return name
	}
	return "—"
}

// renderMessage builds the Arabic bill text for a ready record.
func renderMessage(cfg BillingConfig, r models.BillingRecord, monthName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "مرحباً %s،\n", r.DisplayName)
	fmt.Fprintf(&b, "فاتورة %s لشهر %s:\n", cfg.CompanyName, monthName)
	fmt.Fprintf(&b, "الاستهلاك: %s ك.و.س (السابق %s، الحالي %s).\n",
		r.Usage.Decimal.String(), r.Prev.Decimal.String(), r.Curr.Decimal.String())
	fmt.Fprintf(&b, "الاشتراك: %s أمبير — رسم شهري %s$\n",
		r.SubscriptionType, r.MonthlyFee.Decimal.StringFixed(2))
	fmt.Fprintf(&b, "سعر الكيلوواط: %s$ ⇒ قيمة الطاقة: %s$\n",
		r.PricePerKWh.String(), r.EnergyCost.Decimal.StringFixed(2))
	fmt.Fprintf(&b, "الإجمالي: %s$\n", r.Total.Decimal.StringFixed(2))
	b.WriteString(cfg.CurrencyNote + "\n")
	fmt.Fprintf(&b, "يرجى التسديد قبل يوم %d من الشهر. للاستفسار: %s",
		cfg.PaymentDeadlineDay, cfg.CompanyPhone)
	return b.String()
}
