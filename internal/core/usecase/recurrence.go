package usecase

import (
	"time"

	"github.com/avanleeuwen/invoice-pipeline/internal/core/domain"
)

const dateLayout = "2006-01-02"

// DetectRecurrence projects the next expected invoice date from the
// classification and the invoice date. It is pure; the text-based detection
// already happened during extraction enrichment.
type DetectRecurrence struct{}

func NewDetectRecurrence() *DetectRecurrence {
	return &DetectRecurrence{}
}

func (uc *DetectRecurrence) Execute(extraction *domain.ExtractionResult) domain.RecurrenceSignal {
	if !extraction.Classification.IsRecurring {
		return domain.RecurrenceSignal{}
	}

	freq := extraction.Classification.RecurringFrequency
	signal := domain.RecurrenceSignal{Detected: true, Frequency: &freq}

	date, err := time.Parse(dateLayout, extraction.Invoice.Date)
	if err != nil {
		// Recurring but undated; the caller gets the signal without a
		// projection.
		return signal
	}

	var next time.Time
	switch freq {
	case "weekly":
		next = date.AddDate(0, 0, 7)
	case "quarterly":
		next = addMonthsClamped(date, 3)
	case "annual":
		next = addMonthsClamped(date, 12)
	default:
		next = addMonthsClamped(date, 1)
	}
	s := next.Format(dateLayout)
	signal.SuggestedNextDate = &s
	return signal
}

// addMonthsClamped advances by whole months, clamping the day to the end of
// the target month. Jan 31 plus one month is Feb 29 in a leap year, not
// Mar 2 as naive date normalization would give.
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d, 0, 0, 0, 0, t.Location())
}
