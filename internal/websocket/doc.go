// Package websocket pushes application events to connected front ends.
//
// A single Hub owns the client set. Services publish through Hub.Broadcast
// and every connected client receives a JSON envelope:
//
//	{"type": "license:state", "data": {...}, "timestamp": "..."}
//
// Clients are read only. The only inbound message that is understood is the
// heartbeat {"type":"heartbeat"}; everything else is ignored.
package websocket
