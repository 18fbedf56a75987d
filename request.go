package xdccget

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidArgument indicates a request or option that cannot be used to
// start a session.
var ErrInvalidArgument = errors.New("invalid argument")

const (
	// DefaultServer is the IRC server used when none is given.
	DefaultServer = "irc.rizon.net:6667"
	// DefaultChannel is the channel joined when none is given.
	DefaultChannel = "nibl"
	// DefaultNickname is the nickname registered when none is given.
	DefaultNickname = "xdccgopher"
)

// Request describes one download session: where to connect, who to ask and
// which packs to ask for.
type Request struct {
	Server   string
	Channel  string // without the leading '#'
	Nickname string
	Bot      string
	Packages []string
}

// NewRequest validates its arguments and fills in defaults for the server,
// channel and nickname. The returned request owns a copy of packages.
func NewRequest(server, channel, nickname, bot string, packages []string) (Request, error) {
	if server == "" {
		server = DefaultServer
	}
	channel = strings.TrimPrefix(channel, "#")
	if channel == "" {
		channel = DefaultChannel
	}
	if nickname == "" {
		nickname = DefaultNickname
	}

	if bot == "" {
		return Request{}, fmt.Errorf("%w: bot name is required", ErrInvalidArgument)
	}
	if len(packages) == 0 {
		return Request{}, fmt.Errorf("%w: at least one package is required", ErrInvalidArgument)
	}

	fields := []struct{ name, value string }{
		{"server", server},
		{"channel", channel},
		{"nickname", nickname},
		{"bot", bot},
	}
	for _, f := range fields {
		if strings.ContainsAny(f.value, " \t\r\n") {
			return Request{}, fmt.Errorf("%w: %s %q contains whitespace", ErrInvalidArgument, f.name, f.value)
		}
	}
	for _, pkg := range packages {
		if pkg == "" || strings.ContainsAny(pkg, " \t\r\n") {
			return Request{}, fmt.Errorf("%w: package %q", ErrInvalidArgument, pkg)
		}
	}

	return Request{
		Server:   server,
		Channel:  channel,
		Nickname: nickname,
		Bot:      bot,
		Packages: append([]string(nil), packages...),
	}, nil
}

// ParsePackages splits a comma separated pack list such as "1,2, #3".
// Surrounding spaces and a leading '#' are removed from each entry. Empty
// entries are rejected; duplicates are kept.
func ParsePackages(list string) ([]string, error) {
	if strings.TrimSpace(list) == "" {
		return nil, fmt.Errorf("%w: empty package list", ErrInvalidArgument)
	}

	parts := strings.Split(list, ",")
	packages := make([]string, 0, len(parts))
	for i, part := range parts {
		pkg := strings.TrimPrefix(strings.TrimSpace(part), "#")
		if pkg == "" {
			return nil, fmt.Errorf("%w: empty package at position %d", ErrInvalidArgument, i+1)
		}
		packages = append(packages, pkg)
	}
	return packages, nil
}
