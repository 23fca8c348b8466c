package validate

import (
	"fmt"
	"time"

	"github.com/doclab-pl/doclab/constants"
	"github.com/doclab-pl/doclab/internal/analysis"
)

// EnforcePaymentRecency replaces any model-supplied recency check with a
// computed one: the payment date must not be in the future and must fall
// within the recency window before the reference date. The application date
// is the reference when it parses; otherwise today is.
func EnforcePaymentRecency(res *analysis.Result, applicationDate string, now time.Time) {
	res.Checks = dropMatching(res.Checks, recencyKeys, recencyTitles)

	chk := analysis.Check{
		Key:      string(constants.CheckPaymentRecency),
		Title:    "Payment is recent",
		Required: false,
	}

	ref, refLabel := now, "today"
	if d, ok := ParseDate(applicationDate); ok {
		ref, refLabel = d, "applicationDate"
	}

	paymentStr := res.Field("payment_date")
	if paymentStr == "" {
		paymentStr = res.Field("paymentDate")
	}
	payment, ok := ParseDate(paymentStr)
	if !ok {
		chk.Passed = false
		chk.Details = "payment date not parseable (expected DD.MM.YYYY or YYYY-MM-DD)"
	} else {
		diff := DaysBetween(ref, payment)
		inFuture := diff < 0
		chk.Passed = !inFuture && diff <= constants.PaymentRecencyDays
		chk.Details = fmt.Sprintf("payment_date=%s, ref(%s)=%s, diffDays=%d, threshold=%d",
			payment.Format("2006-01-02"), refLabel, ref.Format("2006-01-02"), diff, constants.PaymentRecencyDays)
	}
	res.Checks = append(res.Checks, chk)
}

// EnforceDocumentAge adds a computed freshness check for documents that must
// not be older than a year at application time, such as lease contracts and
// residence registrations.
func EnforceDocumentAge(res *analysis.Result, applicationDate string, now time.Time) {
	res.Checks = dropMatching(res.Checks, ageKeys, ageTitles)

	chk := analysis.Check{
		Key:      string(constants.CheckDocumentAge),
		Title:    "Document issued within the last year",
		Required: false,
	}

	ref := now
	if d, ok := ParseDate(applicationDate); ok {
		ref = d
	}

	issuedStr := res.Field("issue_date")
	if issuedStr == "" {
		issuedStr = res.Field("document_date")
	}
	if issuedStr == "" {
		issuedStr = res.Field("signed_date")
	}
	issued, ok := ParseDate(issuedStr)
	if !ok {
		chk.Passed = false
		chk.Details = "issue date not parseable (expected DD.MM.YYYY or YYYY-MM-DD)"
	} else {
		diff := DaysBetween(ref, issued)
		chk.Passed = diff >= 0 && diff <= constants.DocumentAgeDays
		chk.Details = fmt.Sprintf("issue_date=%s, ref=%s, diffDays=%d, threshold=%d",
			issued.Format("2006-01-02"), ref.Format("2006-01-02"), diff, constants.DocumentAgeDays)
	}
	res.Checks = append(res.Checks, chk)
}
