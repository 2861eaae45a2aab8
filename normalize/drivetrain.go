package normalize

import "strings"

const (
	TransmissionAutomatic = "Automatic"
	TransmissionManual    = "Manual"

	DriveAWD = "AWD"
	DriveFWD = "FWD"
)

// Transmission maps Swedish and English gearbox labels. Unmatched values are
// returned unchanged.
func Transmission(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "auto"):
		return TransmissionAutomatic
	case strings.Contains(lower, "manu"):
		return TransmissionManual
	}
	return s
}

// DrivingType maps drive-wheel labels ("Fyrhjulsdrift", "Framhjulsdrift").
// Unmatched values are returned unchanged.
func DrivingType(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "fyrhjuls"), strings.Contains(lower, "awd"), strings.Contains(lower, "4wd"):
		return DriveAWD
	case strings.Contains(lower, "framhjuls"), strings.Contains(lower, "fwd"):
		return DriveFWD
	}
	return s
}

// FranchiseApproved parses the certification flag. Unknown text yields nil.
func FranchiseApproved(s string) *bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "ja", "yes", "y":
		v := true
		return &v
	case "false", "0", "nej", "no", "n":
		v := false
		return &v
	}
	return nil
}
