package mqtt

import "strings"

// DefaultTopicPrefix roots every saltplan topic.
const DefaultTopicPrefix = "saltplan"

var topicEscaper = strings.NewReplacer("/", "_", "+", "_", "#", "_")

// PlacementTopic is where placements of one product code are published.
func PlacementTopic(prefix, productCode string) string {
	return prefix + "/placements/" + topicEscaper.Replace(productCode)
}

// DigestTopic carries the suggestion digests.
func DigestTopic(prefix string) string {
	return prefix + "/suggestions"
}

// AckTopic is where consumers acknowledge placements.
func AckTopic(prefix string) string {
	return prefix + "/ack"
}
