// internal/moderator/moderator.go
package moderator

import "strings"

// Moderator transforms user-supplied text before it is stored or forwarded.
// Deployments plug in their own filtering; the service only cares about the
// capability.
type Moderator interface {
	ModerateLobbyDisplayName(name string) string
	ModeratePlayerDisplayName(name string) string
	ModerateTextMessage(message string) string
}

// Passthrough is the default implementation: it trims surrounding
// whitespace and strips control characters but performs no content filtering.
type Passthrough struct{}

func (Passthrough) ModerateLobbyDisplayName(name string) string {
	return scrub(name)
}

func (Passthrough) ModeratePlayerDisplayName(name string) string {
	return scrub(name)
}

func (Passthrough) ModerateTextMessage(message string) string {
	return scrub(message)
}

func scrub(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
