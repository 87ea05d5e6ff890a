// Package bus implements change notification for the local data layer.
//
// Every write to a table publishes an Event. Local subscribers are called
// synchronously, in registration order, before Publish returns. The event is then
// posted to every other context attached to the same origin through a Broadcaster.
//
// Peer events arrive on a FIFO queue and are handed to local subscribers by Run or
// Drain. They are never posted again, and events carrying this bus's own origin are
// dropped, so two contexts cannot ping-pong a notification.
//
// Delivery is at-least-once at best. Subscribers treat an event as a hint to re-read
// the table, never as the data itself. Missed and Stale on delivered peer events let
// a subscriber notice gaps and fall back to a full reload.
package bus
