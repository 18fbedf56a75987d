package irc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
)

// ErrProtocolParse indicates a line matched the transfer-offer pattern but one
// of its numeric fields could not be decoded.
var ErrProtocolParse = errors.New("protocol parse error")

// Compiled once; never mutated.
var (
	pingPattern    = regexp.MustCompile(`^PING :\d+`)
	joinPattern    = regexp.MustCompile(`^(?::\S+ )?JOIN :?#(\S+)`)
	dccSendPattern = regexp.MustCompile(`DCC SEND (?:"(.*)"|(.*)) (\d+) (\d+) (\d+)`)
)

// Offer is a decoded DCC SEND invitation.
type Offer struct {
	FileName string
	IP       net.IP
	Port     uint16
	Size     uint64
}

// Addr returns the peer address in host:port form.
func (o *Offer) Addr() string {
	return net.JoinHostPort(o.IP.String(), strconv.Itoa(int(o.Port)))
}

// Event is the classification of one control-connection line. Each rule is
// evaluated independently, so more than one may be set.
type Event struct {
	// Keepalive is set for a server PING; Reply holds the PONG to send.
	Keepalive bool
	Reply     string

	// Joined is set for a channel JOIN echo; Channel omits the leading '#'.
	Joined  bool
	Channel string

	// Offer is set for a decodable DCC SEND. OfferErr is set instead when the
	// line matched but a numeric field was invalid.
	Offer    *Offer
	OfferErr error
}

// Inert reports whether no rule matched.
func (e Event) Inert() bool {
	return !e.Keepalive && !e.Joined && e.Offer == nil && e.OfferErr == nil
}

// Classify inspects a single line (terminator optional) and extracts the
// fields of every rule it satisfies.
func Classify(line string) Event {
	line = strings.TrimRight(line, "\r\n")
	var ev Event

	if pingPattern.MatchString(line) {
		ev.Keepalive = true
		ev.Reply = "PONG" + strings.TrimPrefix(line, "PING")
	}

	if m := joinPattern.FindStringSubmatch(line); m != nil {
		ev.Joined = true
		ev.Channel = m[1]
	}

	offer, matched, err := parseOffer(line)
	if matched {
		ev.Offer = offer
		ev.OfferErr = err
	}

	return ev
}

// ParseOffer decodes a DCC SEND line. It returns ErrProtocolParse if the line
// is not an offer or a numeric field is invalid.
func ParseOffer(line string) (*Offer, error) {
	offer, matched, err := parseOffer(strings.TrimRight(line, "\r\n"))
	if !matched {
		return nil, fmt.Errorf("%w: not a DCC SEND offer", ErrProtocolParse)
	}
	return offer, err
}

func parseOffer(line string) (*Offer, bool, error) {
	m := dccSendPattern.FindStringSubmatch(line)
	if m == nil {
		return nil, false, nil
	}

	name := m[1]
	if name == "" {
		name = m[2]
	}

	ipNum, err := strconv.ParseUint(m[3], 10, 32)
	if err != nil {
		return nil, true, fmt.Errorf("%w: ip %q: %v", ErrProtocolParse, m[3], err)
	}
	port, err := strconv.ParseUint(m[4], 10, 16)
	if err != nil {
		return nil, true, fmt.Errorf("%w: port %q: %v", ErrProtocolParse, m[4], err)
	}
	if port == 0 {
		return nil, true, fmt.Errorf("%w: port 0 (passive DCC) is not supported", ErrProtocolParse)
	}
	// Sizes must fit in int64 file offsets and progress totals.
	size, err := strconv.ParseUint(m[5], 10, 63)
	if err != nil {
		return nil, true, fmt.Errorf("%w: size %q: %v", ErrProtocolParse, m[5], err)
	}

	return &Offer{
		FileName: name,
		IP:       decodeIP(uint32(ipNum)),
		Port:     uint16(port),
		Size:     size,
	}, true, nil
}

// decodeIP interprets n as four big-endian octets.
func decodeIP(n uint32) net.IP {
	ip := make(net.IP, net.IPv4len)
	binary.BigEndian.PutUint32(ip, n)
	return ip
}
