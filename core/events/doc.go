// Package events defines the planning events emitted on the event bus.
//
// Available event types:
//   - GroupEvent: outcome of a product group co-scheduling attempt
//   - PlacementEvent: batch committed with its entry and exit dates
//   - UnplacedEvent: batch that fits nowhere in its window
package events
