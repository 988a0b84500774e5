package strutil

// ToLowercase lowercases ASCII letters in place. Used for lowercasing header
// names and encoding tokens before they are compared.
func ToLowercase(data []byte) {
	for i, char := range data {
		if char >= 'A' && char <= 'Z' {
			data[i] = char | 0x20
		}
	}
}
