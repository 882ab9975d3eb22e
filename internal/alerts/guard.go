package alerts

import "time"

// tooSoon implements the digest minimum-interval gate: a subscription sent
// within the frequency's minimum interval is skipped for the whole cycle,
// which also absorbs retried or early-firing scheduled triggers.
func tooSoon(sub *Subscription, now time.Time) bool {
	interval := sub.Frequency.minInterval()
	if interval == 0 || sub.LastSentAt == nil {
		return false
	}
	return now.Sub(*sub.LastSentAt) < interval
}

// startOfUTCDay returns midnight UTC of now's day; the instant-path daily
// cap counts "sent" deliveries from this instant.
func startOfUTCDay(now time.Time) time.Time {
	u := now.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
