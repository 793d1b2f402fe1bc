package logging

import "log/slog"

// Domain identifiers

func Conn(id string) slog.Attr {
	return slog.String("conn_id", id)
}

func User(name string) slog.Attr {
	return slog.String("user", name)
}

func Room(name string) slog.Attr {
	return slog.String("room", name)
}

func Protocol(p string) slog.Attr {
	return slog.String("protocol", p)
}

func Addr(addr string) slog.Attr {
	return slog.String("remote_addr", addr)
}

// Error handling

func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
