package lifecycle

import (
	"sort"

	"portal/internal/app/apperr"
)

// detailKeys is the attribute schema for serviceDetails, keyed by category.
// A nil entry accepts any key.
var detailKeys = map[Category]map[string]bool{
	CategoryDomain: {
		"registrar": true, "nameservers": true, "whoisPrivacy": true, "registrationDate": true,
	},
	CategoryHosting: {
		"controlPanel": true, "storageGb": true, "bandwidthGb": true, "serverLocation": true, "ipAddress": true,
	},
	CategoryEmail: {
		"accountCount": true, "emailProvider": true, "storagePerAccountGb": true,
	},
	CategorySecurity: {
		"vendor": true, "licenseKey": true, "seats": true, "productName": true,
	},
	CategorySubscription: {
		"vendor": true, "plan": true, "seats": true,
	},
	CategoryOther: nil,
}

// DetailKeys returns the sorted keys allowed for c, or nil when any key is.
func DetailKeys(c Category) []string {
	allowed := detailKeys[c]
	if allowed == nil {
		return nil
	}
	keys := make([]string, 0, len(allowed))
	for k := range allowed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidateDetails checks that every key in details belongs to category c.
func ValidateDetails(c Category, details map[string]any) error {
	allowed, ok := detailKeys[c]
	if !ok {
		return apperr.Validation("category", "unknown category %q", c)
	}
	if allowed == nil {
		return nil
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !allowed[k] {
			return apperr.Validation("serviceDetails."+k, "not an attribute of %s services", c)
		}
	}
	return nil
}
