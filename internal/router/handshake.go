package router

import (
	"net/url"
	"strings"
)

// Params are the registration parameters carried by the handshake target.
type Params struct {
	User    string
	HasUser bool
	Room    string
	HasRoom bool
}

// ParseParams reads a handshake query such as "user=alice&room=lobby".
//
// The query is read positionally: it is split on '&' and '=' and the tokens
// at positions 0/1 are the user pair, positions 2/3 the room pair. Keys in
// other positions are ignored and missing positions leave the value unset.
func ParseParams(rawQuery string) Params {
	rawQuery = strings.TrimPrefix(rawQuery, "?")
	if rawQuery == "" {
		return Params{}
	}
	tokens := splitKeepEmpty(rawQuery)

	var p Params
	if len(tokens) >= 2 && tokens[0] == "user" {
		p.User, p.HasUser = unescape(tokens[1]), true
	}
	if len(tokens) >= 4 && tokens[2] == "room" {
		p.Room, p.HasRoom = unescape(tokens[3]), true
	}
	return p
}

// splitKeepEmpty splits on '&' and '=' keeping empty tokens, so "user=&room=x"
// still has the room pair at positions 2/3.
func splitKeepEmpty(s string) []string {
	var tokens []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '&' || s[i] == '=' {
			tokens = append(tokens, s[start:i])
			start = i + 1
		}
	}
	return append(tokens, s[start:])
}

func unescape(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	return s
}
