// Package xdccget downloads files offered by XDCC bots on IRC.
//
// A Session logs into an IRC network, joins a channel, asks a bot to send one
// or more numbered packs and receives every DCC SEND transfer the bot starts.
// Transfers run concurrently; the session returns once each of them has
// finished.
//
// # Getting Started
//
//	packages, err := xdccget.ParsePackages("12, #13")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	req, err := xdccget.NewRequest("irc.rizon.net:6667", "nibl", "", "SomeBot", packages)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	opts := xdccget.NewOptions()
//	opts.Dir = "downloads"
//	opts.Reporter = progress.NewBars(os.Stderr)
//
//	session, err := xdccget.NewSession(req, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	summary, err := session.Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d of %d packs received\n", summary.Completed(), summary.Requested)
//
// # Session Lifecycle
//
// The session registers with NICK and USER, answers every PING with a PONG
// and sends JOIN after the first PONG. When the server echoes the join for the
// configured channel the pack requests are sent, once, in the order given.
// Each DCC SEND offer received afterwards starts a transfer. Offers that
// arrive before the join are ignored, as are offers with undecodable fields.
//
// Once an offer has been accepted for every requested pack the session stops
// reading, sends QUIT and closes the control connection, then waits for the
// transfers. Losing the control connection earlier ends the session with an
// error wrapping transport.ErrConnection, after the transfers already started
// have finished.
//
// # Proxies
//
// Options.Proxy routes both the control connection and the transfers through
// a SOCKS5, SOCKS4 or HTTP CONNECT proxy:
//
//	opts.Proxy, err = transport.ParseProxyURL("socks5://127.0.0.1:9050")
package xdccget
