package types

import "strings"

type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

var ConvertFrequency = map[string]Frequency{
	"daily":   Daily,
	"d":       Daily,
	"weekly":  Weekly,
	"w":       Weekly,
	"monthly": Monthly,
	"m":       Monthly,
}

// LookupFrequency maps a config string to a Frequency, case-insensitively.
func LookupFrequency(s string) (Frequency, bool) {
	f, ok := ConvertFrequency[strings.ToLower(strings.TrimSpace(s))]
	return f, ok
}
