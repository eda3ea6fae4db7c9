// Package eio implements an Engine.IO v4 transport server: HTTP
// long-polling and WebSocket upgrade, packet framing, heartbeats and a
// session registry. The eio/sio subpackage layers the Socket.IO v5 packet
// codec on top, as a pure codec with no knowledge of transports or I/O.
package eio
