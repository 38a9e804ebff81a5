package maps

import "testing"

func TestExtractPincode(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    string
	}{
		{"plain address", "12 MG Road, Indiranagar, Bengaluru, Karnataka 560038, India", "560038"},
		{"pincode mid-string", "Shop 4, 110001 Connaught Place, New Delhi", "110001"},
		{"no pincode", "MG Road, Bengaluru, Karnataka", ""},
		{"leading zero rejected", "Somewhere 012345, India", ""},
		{"too long rejected", "Plot 1234567, Industrial Area", ""},
		{"first of several wins", "400001 Fort, Mumbai 400002", "400001"},
		{"empty", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractPincode(tc.address); got != tc.want {
				t.Errorf("ExtractPincode(%q) = %q, want %q", tc.address, got, tc.want)
			}
		})
	}
}
