package us

import (
	"errors"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
)

// settleDelay is how long after the session close daily bars are considered
// final.
const settleDelay = 15 * time.Minute

// LatestFinishedTradingDay returns the most recent trading day whose session
// has closed, using the Alpaca trading calendar.
func LatestFinishedTradingDay(apiKey, apiSecret, baseURL string) (time.Time, error) {
	client := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})

	et, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.Time{}, fmt.Errorf("loading ET timezone: %w", err)
	}
	now := time.Now().In(et)

	days, err := client.GetCalendar(alpaca.GetCalendarRequest{
		Start: now.AddDate(0, 0, -7),
		End:   now,
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("GetCalendar: %w", err)
	}
	return latestFinished(days, now)
}

// latestFinished picks the last calendar day whose close plus settleDelay is
// not after now. now must carry the exchange location.
func latestFinished(days []alpaca.CalendarDay, now time.Time) (time.Time, error) {
	if len(days) == 0 {
		return time.Time{}, errors.New("no trading days returned from calendar")
	}
	for i := len(days) - 1; i >= 0; i-- {
		d, err := time.ParseInLocation(time.DateOnly, days[i].Date, now.Location())
		if err != nil {
			continue
		}
		closeAt := time.Date(d.Year(), d.Month(), d.Day(), 16, 0, 0, 0, now.Location())
		if c, err := time.Parse("15:04", days[i].Close); err == nil {
			closeAt = time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), 0, 0, now.Location())
		}
		if !closeAt.Add(settleDelay).After(now) {
			return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, errors.New("could not determine latest finished trading day")
}
