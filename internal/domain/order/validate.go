package order

import "regexp"

var (
	// nationalIDPattern matches the fixed 10-digit national identity format.
	nationalIDPattern = regexp.MustCompile(`^\d{10}$`)

	// phonePattern matches the regional subscriber format: a leading zero
	// followed by ten digits, covering both mobile (09x) and landline
	// (area code) numbers.
	phonePattern = regexp.MustCompile(`^0\d{10}$`)
)

// validateBilling checks billing identity formats. Field names in the
// returned errors mirror the wire payload.
func validateBilling(b BillingInfo) *InputValidationError {
	if !nationalIDPattern.MatchString(b.NationalID) {
		return invalidf("billing.national_id", "must be exactly 10 digits")
	}
	if b.FullName == "" {
		return invalidf("billing.full_name", "required")
	}
	if !phonePattern.MatchString(b.Phone) {
		return invalidf("billing.phone", "must be 11 digits starting with 0")
	}
	return nil
}

// validateDelivery checks the delivery address, including coordinate bounds
// when coordinates are supplied.
func validateDelivery(d DeliveryAddress) *InputValidationError {
	if d.RecipientName == "" {
		return invalidf("delivery.recipient_name", "required")
	}
	if !phonePattern.MatchString(d.RecipientPhone) {
		return invalidf("delivery.recipient_phone", "must be 11 digits starting with 0")
	}
	if d.Latitude != nil && (*d.Latitude < -90 || *d.Latitude > 90) {
		return invalidf("delivery.latitude", "must be within [-90, 90], got %v", *d.Latitude)
	}
	if d.Longitude != nil && (*d.Longitude < -180 || *d.Longitude > 180) {
		return invalidf("delivery.longitude", "must be within [-180, 180], got %v", *d.Longitude)
	}
	return nil
}
