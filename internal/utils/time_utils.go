package utils

import (
	"time"
)

var marketLoc *time.Location

func init() {
	var err error
	marketLoc, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback to Local if timezone data is missing
		// In production docker, ensure tzdata is installed
		marketLoc = time.Local
	}
}

// GetMarketTime returns the current time in the US market timezone
func GetMarketTime() time.Time {
	return time.Now().In(marketLoc)
}

// GetStartOfDay returns 00:00:00 of the current market day. Daily PnL
// windows are cut here.
func GetStartOfDay() time.Time {
	now := GetMarketTime()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, marketLoc)
}

// GetLocation returns the market *time.Location
func GetLocation() *time.Location {
	return marketLoc
}
