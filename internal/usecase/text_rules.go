// File: internal/usecase/text_rules.go
package usecase

import (
	"context"
	"encoding/json"
	"strings"

	"telegram-content-relay/internal/domain/model"
	"telegram-content-relay/internal/domain/ports/repository"
)

// NewPrefTextTransform builds the default text rule application: per-user
// replacement pairs first, then word deletion. Rules are stored as JSON in
// prefs; unreadable rules are ignored so a bad value never blocks a transfer.
func NewPrefTextTransform(users repository.UserRepository) TextTransform {
	return func(ctx context.Context, userID int64, text string) string {
		if text == "" {
			return ""
		}

		if raw, _ := users.GetPref(ctx, userID, model.PrefReplaceRules, ""); raw != "" {
			var rules map[string]string
			if err := json.Unmarshal([]byte(raw), &rules); err == nil {
				for old, repl := range rules {
					text = strings.ReplaceAll(text, old, repl)
				}
			}
		}

		if raw, _ := users.GetPref(ctx, userID, model.PrefDeleteWords, ""); raw != "" {
			var words []string
			if err := json.Unmarshal([]byte(raw), &words); err == nil {
				fields := strings.Fields(text)
				kept := fields[:0]
				for _, f := range fields {
					drop := false
					for _, w := range words {
						if f == w {
							drop = true
							break
						}
					}
					if !drop {
						kept = append(kept, f)
					}
				}
				text = strings.Join(kept, " ")
			}
		}

		return text
	}
}
