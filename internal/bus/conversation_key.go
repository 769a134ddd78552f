package bus

import (
	"fmt"
	"strings"
)

// BuildWhatsAppConversationKey derives the stable per-conversation key
// from a WhatsApp user identifier (phone-number-derived, no spaces).
func BuildWhatsAppConversationKey(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("conversation id is required")
	}
	if strings.Contains(id, " ") {
		return "", fmt.Errorf("conversation id must not contain spaces")
	}
	return "wa:" + id, nil
}

// UserIDFromConversationKey is the inverse of BuildWhatsAppConversationKey.
func UserIDFromConversationKey(key string) (string, error) {
	id, ok := strings.CutPrefix(key, "wa:")
	if !ok || strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("conversation key is invalid")
	}
	return id, nil
}
