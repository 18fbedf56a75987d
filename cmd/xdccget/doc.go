// Package main provides the xdccget command, which downloads one or more
// packs from an XDCC bot.
//
// Usage:
//
//	xdccget -b Bot|XDCC -p 12,13 [-s irc.rizon.net:6667] [-c nibl] [-d downloads]
//
// The process exits with status 2 on invalid arguments, 1 when the session
// fails or any transfer fails (unless -allow-partial is set) and 0 otherwise.
package main
