package utils

import "time"

// ToIST converts UTC time to Indian Standard Time (IST). Booking dates are
// picked on the customer's local calendar, so day arithmetic happens in IST.
func ToIST(t time.Time) time.Time {
	ist, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return t.In(time.FixedZone("IST", 5*60*60+30*60))
	}
	return t.In(ist)
}

// TomorrowIST returns the IST calendar date after t in layout.
func TomorrowIST(t time.Time, layout string) string {
	return ToIST(t).AddDate(0, 0, 1).Format(layout)
}
