package client

import "fmt"

// TypingLabel renders the typing indicator for users, leaving out self.
// It returns "" when nobody else is typing.
func TypingLabel(users []string, self string) string {
	others := make([]string, 0, len(users))
	for _, user := range users {
		if user != self {
			others = append(others, user)
		}
	}

	switch len(others) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("%s is typing...", others[0])
	default:
		return fmt.Sprintf("%s and %d more are typing...", others[0], len(others)-1)
	}
}
