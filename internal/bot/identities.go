package bot

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// BotPrefix marks synthetic seat occupants that are not backed by accounts.
const BotPrefix = "bot-"

// BotIdentity is one entry in the bot roster file.
type BotIdentity struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

var (
	botIdentities  []BotIdentity
	botUsernameMap map[string]string
	loadOnce       sync.Once
	loadErr        error
)

// LoadIdentities loads the bot roster from the given path, once.
func LoadIdentities(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read bot identities: %w", err)
			return
		}

		if err := json.Unmarshal(data, &botIdentities); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal bot identities: %w", err)
			return
		}

		botUsernameMap = make(map[string]string, len(botIdentities))
		for _, identity := range botIdentities {
			if identity.UserID != "" {
				botUsernameMap[identity.UserID] = identity.Username
			}
		}
	})
	return loadErr
}

// GetBotIdentity returns an identity for a bot by index (mod pool size).
// Falls back to a generated identity when no roster file was loaded.
func GetBotIdentity(index int) BotIdentity {
	if len(botIdentities) == 0 {
		return BotIdentity{
			UserID:      fmt.Sprintf("%s%d", BotPrefix, index),
			Username:    fmt.Sprintf("dealerbot%d", index),
			DisplayName: fmt.Sprintf("Table Bot %d", index+1),
		}
	}
	return botIdentities[index%len(botIdentities)]
}

// GetBotUsername returns the username for a bot ID, or "" if not a bot.
func GetBotUsername(userID string) string {
	if name, ok := botUsernameMap[userID]; ok {
		return name
	}
	if strings.HasPrefix(userID, BotPrefix) {
		return userID
	}
	return ""
}

// IsBot reports whether the given user ID belongs to the bot pool.
func IsBot(userID string) bool {
	if strings.HasPrefix(userID, BotPrefix) {
		return true
	}
	_, ok := botUsernameMap[userID]
	return ok
}
