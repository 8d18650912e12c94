// Package server implements the HTTP and WebSocket relay.
//
// A Hub runs the single event loop that owns the Registry of live clients and
// their room memberships. Each Client runs a read pump that decodes
// {"event","data"} frames and dispatches them to the loop, and a write pump
// that drains its send channel. Handlers serve the login endpoint, which
// issues credentials, and the /ws endpoint, which verifies them before the
// upgrade.
//
// Private messages go to the per-user room named by UserRoomName. Clients
// are not subscribed to their own per-user room automatically, and leaving a
// connection does not notify former room peers.
package server
