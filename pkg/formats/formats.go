// Package formats validates and normalizes Indian freight identifiers.
package formats

import (
	"regexp"
	"strings"
)

var (
	vehicleNumberPattern = regexp.MustCompile(`^[A-Z]{2}\d{1,2}[A-Z]{1,3}\d{1,4}$`)
	phonePattern         = regexp.MustCompile(`^\d{10}$`)
	ifscPattern          = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	panPattern           = regexp.MustCompile(`^[A-Z]{5}\d{4}[A-Z]$`)
	gstinPattern         = regexp.MustCompile(`^\d{2}[A-Z]{5}\d{4}[A-Z][A-Z\d]Z[A-Z\d]$`)
)

var vehicleSeparators = strings.NewReplacer(" ", "", "-", "", ".", "")

// NormalizeVehicleNumber upper-cases and strips spaces, dashes and dots,
// so "mh 12-ab 1234" becomes "MH12AB1234".
func NormalizeVehicleNumber(value string) string {
	return strings.ToUpper(vehicleSeparators.Replace(strings.TrimSpace(value)))
}

// VehicleNumber reports whether value is a registration number once normalized.
func VehicleNumber(value string) bool {
	return vehicleNumberPattern.MatchString(NormalizeVehicleNumber(value))
}

// NormalizePhone drops surrounding space and a leading +91 or 0 trunk prefix.
func NormalizePhone(value string) string {
	v := strings.ReplaceAll(strings.TrimSpace(value), " ", "")
	switch {
	case strings.HasPrefix(v, "+91") && len(v) == 13:
		return v[3:]
	case strings.HasPrefix(v, "0") && len(v) == 11:
		return v[1:]
	}
	return v
}

// Phone reports whether value is a ten digit mobile number once normalized.
func Phone(value string) bool {
	return phonePattern.MatchString(NormalizePhone(value))
}

func IFSC(value string) bool {
	return ifscPattern.MatchString(strings.ToUpper(strings.TrimSpace(value)))
}

func PAN(value string) bool {
	return panPattern.MatchString(strings.ToUpper(strings.TrimSpace(value)))
}

func GSTIN(value string) bool {
	return gstinPattern.MatchString(strings.ToUpper(strings.TrimSpace(value)))
}
