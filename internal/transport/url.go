package transport

import "net/url"

// Terminal endpoint addressing on the dashboard.
const (
	TermPath      = "/ws"
	OpTermConnect = "termconnect"
)

// TermConnectURL returns the WebSocket URL of the terminal endpoint for
// session id on the dashboard at host ("host:port").
func TermConnectURL(host string, secure bool, id string) string {
	scheme := "ws"
	if secure {
		scheme = "wss"
	}
	return scheme + "://" + host + TermPath + "?op=" + OpTermConnect + "&id=" + url.QueryEscape(id)
}
