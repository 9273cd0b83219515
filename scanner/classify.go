package scanner

import "strings"

// DeviceType is the coarse category assigned to a discovered device.
type DeviceType string

const (
	TypePhone  DeviceType = "Phone"
	TypeLaptop DeviceType = "Laptop"
	TypeTV     DeviceType = "TV"
	TypeOther  DeviceType = "Other"
)

// Classification precedence, most specific first. TV compound tokens are
// checked before generic phone-vendor tokens so that "Samsung TV" resolves
// to TV rather than Phone; the bare vendor tokens only apply once no more
// specific token matched.
//
//	1. TV:     "smart tv", "samsung tv", "lg tv", "tv"
//	2. Phone:  "phone", "iphone", "android", "samsung", "xiaomi", "huawei"
//	3. Laptop: "laptop", "macbook", "intel", "hp", "dell", "lenovo"
//	4. TV:     "lg"
//	5. Other:  everything else
var (
	tvTokens     = []string{"smart tv", "samsung tv", "lg tv", "tv"}
	phoneTokens  = []string{"phone", "iphone", "android", "samsung", "xiaomi", "huawei"}
	laptopTokens = []string{"laptop", "macbook", "intel", "hp", "dell", "lenovo"}
	tvVendors    = []string{"lg"}
)

// ClassifyDevice derives a device type from the vendor and name strings
// using substring matching over their lower-cased concatenation. First
// match in precedence order wins.
func ClassifyDevice(vendor, name string) DeviceType {
	haystack := strings.ToLower(vendor + " " + name)

	for _, tok := range tvTokens {
		if strings.Contains(haystack, tok) {
			return TypeTV
		}
	}
	for _, tok := range phoneTokens {
		if strings.Contains(haystack, tok) {
			return TypePhone
		}
	}
	for _, tok := range laptopTokens {
		if strings.Contains(haystack, tok) {
			return TypeLaptop
		}
	}
	for _, tok := range tvVendors {
		if strings.Contains(haystack, tok) {
			return TypeTV
		}
	}
	return TypeOther
}
