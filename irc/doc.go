// Package irc implements the small slice of IRC needed to drive an XDCC bot:
// framing the control connection into lines, classifying those lines, and
// writing the handful of commands the client sends.
//
// # Line Framing
//
// LineReader turns an unframed byte stream into newline-terminated lines.
// The chunk size passed to WithChunkSize only changes how many reads are
// issued; the produced lines are identical for any size of at least one byte:
//
//	lr := irc.NewLineReader(conn, irc.WithChunkSize(512))
//	for {
//	    line, err := lr.ReadLine()
//	    if err != nil {
//	        return err
//	    }
//	    handle(line)
//	}
//
// Lines are decoded once complete, so invalid UTF-8 is dropped without
// corrupting neighbouring characters. Other charsets are supported through
// golang.org/x/text via WithEncoding and LookupEncoding.
//
// # Classification
//
// Classify evaluates three independent rules on a line:
//
//   - Keepalive: "PING :<digits>" at the start of the line; Event.Reply holds
//     the matching "PONG :<digits>".
//   - Join: a "JOIN #channel" echo, with or without a source prefix.
//   - Offer: a "DCC SEND" invitation, usually wrapped in a CTCP PRIVMSG. The
//     file name may be quoted; the address is a 32-bit big-endian integer.
//
//	ev := irc.Classify(`DCC SEND "My File.zip" 2130706433 5000 104857600`)
//	// ev.Offer.FileName == "My File.zip", ev.Offer.Addr() == "127.0.0.1:5000"
//
// An offer whose numeric fields cannot be decoded yields Event.OfferErr,
// which wraps ErrProtocolParse.
//
// # Commands
//
// Nick, User, Join, XDCCSend and Quit build outgoing lines; Conn.Send
// appends the CRLF terminator.
package irc
