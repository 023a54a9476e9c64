package automation

import "dealradar/offers-service/internal/model"

// InActiveWindow reports whether the hour falls inside the tenant's daily
// posting window [StartHour, EndHour). EndHour below StartHour expresses an
// overnight window (e.g. 22→6); equal bounds mean always active.
func InActiveWindow(cfg model.AutomationConfig, hour int) bool {
	start, end := cfg.StartHour, cfg.EndHour
	switch {
	case start == end:
		return true
	case start < end:
		return hour >= start && hour < end
	default:
		return hour >= start || hour < end
	}
}

// PeakWindow returns the first configured peak window containing the hour.
func PeakWindow(cfg model.AutomationConfig, hour int) (model.PeakHour, bool) {
	for _, p := range cfg.PeakHours {
		switch {
		case p.Start == p.End:
			continue
		case p.Start < p.End:
			if hour >= p.Start && hour < p.End {
				return p, true
			}
		default:
			if hour >= p.Start || hour < p.End {
				return p, true
			}
		}
	}
	return model.PeakHour{}, false
}
