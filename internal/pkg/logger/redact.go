package logger

import "strings"

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" → "jo***@example.com"
// Short local parts (≤2 chars) are fully masked: "ab@example.com" → "***@example.com"
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}

// RedactPhone keeps the prefix and the last two digits of a phone number.
// "010-1234-5678" → "010-****-**78"
func RedactPhone(phone string) string {
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < 7 {
		return "***"
	}
	var sb strings.Builder
	seen := 0
	for _, r := range phone {
		if r < '0' || r > '9' {
			sb.WriteRune(r)
			continue
		}
		seen++
		if seen <= 3 || seen > digits-2 {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('*')
		}
	}
	return sb.String()
}
