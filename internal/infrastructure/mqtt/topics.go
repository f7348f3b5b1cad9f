package mqtt

import "strings"

// DefaultTopicPrefix is used when the configuration leaves topic_prefix empty.
const DefaultTopicPrefix = "fingerprint"

// Inbound command names carried on {prefix}/set/{command}.
const (
	CommandScan      = "scan"
	CommandEnroll    = "enroll"
	CommandDelete    = "delete"
	CommandEmpty     = "empty"
	CommandTemplates = "templates"
	CommandHistory   = "history"

	// CommandNamePrefix precedes the slot in a rename command: name_{slot}.
	CommandNamePrefix = "name_"
)

// Topics builds the node's MQTT topic names under a configurable prefix.
//
//	topics := mqtt.NewTopics("fingerprint")
//	topics.Mode()    // "fingerprint/mode"
//	topics.Set("enroll") // "fingerprint/set/enroll"
type Topics struct {
	Prefix string
}

// NewTopics returns a Topics builder. Trailing slashes on prefix are trimmed.
func NewTopics(prefix string) Topics {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{Prefix: prefix}
}

func (t Topics) join(parts ...string) string {
	return t.Prefix + "/" + strings.Join(parts, "/")
}

// =============================================================================
// Inbound
// =============================================================================

// Set returns the command topic for a single command.
//
// Example: fingerprint/set/enroll
func (t Topics) Set(command string) string {
	return t.join("set", command)
}

// SetWildcard matches every inbound command.
//
// Pattern: fingerprint/set/#
func (t Topics) SetWildcard() string {
	return t.join("set", "#")
}

// ParseSet extracts the command from an inbound topic.
// It reports false when topic is not a direct child of {prefix}/set.
func (t Topics) ParseSet(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, t.join("set")+"/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

// =============================================================================
// Outbound
// =============================================================================

// Mode carries the current operating mode (retained).
func (t Topics) Mode() string { return t.join("mode") }

// Finger carries one access decision per scan.
func (t Topics) Finger() string { return t.join("finger") }

// Templates carries the full template registry (retained).
func (t Topics) Templates() string { return t.join("templates") }

// Event carries admin operation outcomes.
func (t Topics) Event() string { return t.join("event") }

// History carries access log query results.
func (t Topics) History() string { return t.join("history") }

// Status carries online/offline presence (retained, also the LWT topic).
func (t Topics) Status() string { return t.join("status") }

// Health carries periodic health reports.
func (t Topics) Health() string { return t.join("health") }
