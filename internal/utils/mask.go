package utils

func MaskSecret(s string) string {
	if len(s) <= 4 {
		return "*****"
	}
	return s[:4] + "*****"
}

// MaskDigits hides all but the last n characters of a document number.
func MaskDigits(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return "***"
	}
	masked := make([]byte, len(s))
	for i := range s {
		if i < len(s)-n {
			masked[i] = '*'
		} else {
			masked[i] = s[i]
		}
	}
	return string(masked)
}
