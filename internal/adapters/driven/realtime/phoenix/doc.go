// Package phoenix implements the realtime ports on the Phoenix channels
// protocol (serializer version 2.0.0) over a gorilla/websocket connection.
//
// Frames are JSON arrays of [join_ref, ref, topic, event, payload]. Pushes
// are acknowledged by a phx_reply on the same ref whose payload carries
// {"status", "response"}. The socket sends a heartbeat on the "phoenix"
// topic and closes itself when a heartbeat goes unanswered.
package phoenix
