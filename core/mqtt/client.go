package mqtt

import "time"

// Placement announces a committed entry/exit assignment to plant consumers.
type Placement struct {
	MessageID   string `json:"message_id"`
	RunID       string `json:"run_id"`
	BatchID     string `json:"batch_id"`
	ProductCode string `json:"product_code"`
	Quantity    int    `json:"quantity"`
	Entry       string `json:"entry_date"`
	Exit        string `json:"exit_date"`
	StorageDays int    `json:"storage_days"`
	Grouped     bool   `json:"grouped"`
	Timestamp   int64  `json:"timestamp"`
}

// DigestRow is the best remediation found for one unplaced batch.
type DigestRow struct {
	BatchID        string `json:"batch_id"`
	ProductCode    string `json:"product_code"`
	Quantity       int    `json:"quantity"`
	MaxDeficit     int    `json:"max_deficit"`
	TotalDeficit   int    `json:"total_deficit"`
	Recommendation string `json:"recommendation"`
}

// Digest summarises the unplaced batches of a run.
type Digest struct {
	MessageID string      `json:"message_id"`
	RunID     string      `json:"run_id"`
	Unplaced  int         `json:"unplaced"`
	Rows      []DigestRow `json:"rows"`
	Timestamp int64       `json:"timestamp"`
}

// Ack is sent back by a consumer once it has taken over a placement.
type Ack struct {
	MessageID string `json:"message_id"`
	BatchID   string `json:"batch_id,omitempty"`
}

// Publisher delivers plan results to the plant over MQTT.
type Publisher interface {
	// PublishPlacement sends one placement and returns the message id used
	// for acknowledgment tracking.
	PublishPlacement(p Placement) (messageID string, err error)

	// PublishDigest sends the suggestion digest of a run.
	PublishDigest(d Digest) (messageID string, err error)

	// WaitForAck waits for an acknowledgment of the given message id or
	// until the timeout expires.
	WaitForAck(messageID string, timeout time.Duration) (bool, error)
}
