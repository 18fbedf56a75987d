package irc

import "fmt"

// Nick builds the nickname registration line.
func Nick(nick string) string {
	return "NICK " + nick
}

// User builds the user registration line.
func User(nick string) string {
	return fmt.Sprintf("USER %s 0 * %s", nick, nick)
}

// Join builds a channel join request. channel is given without '#'.
func Join(channel string) string {
	return "JOIN #" + channel
}

// XDCCSend builds the private message asking bot to send pack number pkg.
func XDCCSend(bot, pkg string) string {
	return fmt.Sprintf("PRIVMSG %s :xdcc send #%s", bot, pkg)
}

// Quit builds the quit notice.
func Quit(message string) string {
	return "QUIT :" + message
}
