package models

type DayOfWeek int

const (
	Sunday DayOfWeek = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// Availability is one weekly opening window of a provider.
type Availability struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	ProviderID uint      `json:"providerId" gorm:"index;not null"`
	DayOfWeek  DayOfWeek `json:"dayOfWeek"`
	StartTime  string    `json:"startTime"` // "HH:MM", 24h
	EndTime    string    `json:"endTime"`   // "HH:MM", 24h
}

// Covers reports whether the window contains [start, end) on the given day.
// Times are "HH:MM" strings, which compare correctly as text.
func (a Availability) Covers(day DayOfWeek, start, end string) bool {
	return a.DayOfWeek == day && a.StartTime <= start && end <= a.EndTime
}
