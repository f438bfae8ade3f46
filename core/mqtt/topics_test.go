package mqtt

import "testing"

func TestTopics(t *testing.T) {
	if got := PlacementTopic("plant", "JCIVRPORCISAN"); got != "plant/placements/JCIVRPORCISAN" {
		t.Fatalf("placement topic %q", got)
	}
	if got := PlacementTopic("plant", "A/B+#"); got != "plant/placements/A_B__" {
		t.Fatalf("wildcards not escaped: %q", got)
	}
	if got := DigestTopic(DefaultTopicPrefix); got != "saltplan/suggestions" {
		t.Fatalf("digest topic %q", got)
	}
	if got := AckTopic(DefaultTopicPrefix); got != "saltplan/ack" {
		t.Fatalf("ack topic %q", got)
	}
}
