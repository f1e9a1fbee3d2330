package ordering

import "time"

// PrintSettings controls when auto-print is allowed to dispatch an order.
// The zero value disables nothing: auto-print on, full-day business hours,
// all order types.
type PrintSettings struct {
	AutoPrintEnabled   bool
	PrintDineInOnly    bool
	BusinessHoursStart time.Duration // offset from midnight, local time
	BusinessHoursEnd   time.Duration
}

// DefaultPrintSettings returns settings that print every order all day.
func DefaultPrintSettings() PrintSettings {
	return PrintSettings{
		AutoPrintEnabled:   true,
		PrintDineInOnly:    false,
		BusinessHoursStart: 0,
		BusinessHoursEnd:   24*time.Hour - time.Minute,
	}
}

// AllowsOrder reports whether the settings permit auto-printing the order
// at the given wall-clock time.
func (s PrintSettings) AllowsOrder(o Order, now time.Time) bool {
	if !s.AutoPrintEnabled {
		return false
	}
	if s.PrintDineInOnly && !o.IsDineIn {
		return false
	}
	sinceMidnight := time.Duration(now.Hour())*time.Hour +
		time.Duration(now.Minute())*time.Minute
	if s.BusinessHoursEnd > s.BusinessHoursStart {
		return sinceMidnight >= s.BusinessHoursStart && sinceMidnight <= s.BusinessHoursEnd
	}
	// Window crossing midnight.
	return sinceMidnight >= s.BusinessHoursStart || sinceMidnight <= s.BusinessHoursEnd
}
