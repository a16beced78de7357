package logger

import (
	"log/slog"
	"time"
)

// Error returns an empty Attr for nil errors, which slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

func RequestID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("request_id", id)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Event(name string) slog.Attr {
	return slog.String("event", name)
}

func Locale(locale string) slog.Attr {
	return slog.String("locale", locale)
}

func Path(path string) slog.Attr {
	return slog.String("path", path)
}

func Method(method string) slog.Attr {
	return slog.String("method", method)
}

func Status(code int) slog.Attr {
	return slog.Int("status", code)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Provider names an identity or OAuth provider.
func Provider(name string) slog.Attr {
	return slog.String("provider", name)
}

// Form names the auth form a log line is about.
func Form(name string) slog.Attr {
	return slog.String("form", name)
}

// ErrorType records an error taxonomy tag such as INVALID_CREDENTIALS.
func ErrorType(tag string) slog.Attr {
	return slog.String("error_type", tag)
}
