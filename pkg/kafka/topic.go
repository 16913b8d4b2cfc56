package kafka

import "fmt"

// TopicPrefix is the common prefix for all application topics.
const TopicPrefix = "inkwell"

// Topic builds a fully-qualified topic name from a domain and an action,
// e.g. Topic("note", "shared") -> "inkwell.note.shared".
func Topic(domain, action string) string {
	return fmt.Sprintf("%s.%s.%s", TopicPrefix, domain, action)
}
