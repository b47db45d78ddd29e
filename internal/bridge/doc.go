// Package bridge exposes the chat relay to WebSocket clients. Each upgraded
// connection is proxied onto a plain TCP connection to the relay, so gateway
// clients are ordinary peers: they appear in the roster under the bridge-side
// ip:port and can be addressed with the usual @ip:port syntax.
//
// The relay's wire charset is passed through untouched; browsers expect
// UTF-8, so deployments using a legacy charset should keep the bridge off.
package bridge
