// Package notify delivers password-reset notifications.
//
// E-mail delivery is out of scope: LogSink writes the reset link to the log,
// which is the delivery channel in development. Queue moves delivery off the
// request path by persisting each notification as a backlite task.
package notify

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
)

// Sink receives a password-reset notification for one account.
type Sink interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogSink logs the reset link instead of sending mail.
type LogSink struct {
	logger   *slog.Logger
	linkBase string
}

// NewLogSink returns a LogSink that builds links as linkBase?token=<token>.
func NewLogSink(logger *slog.Logger, linkBase string) *LogSink {
	return &LogSink{logger: logger, linkBase: linkBase}
}

func (s *LogSink) SendPasswordReset(ctx context.Context, email, token string) error {
	s.logger.InfoContext(ctx, "password reset requested",
		slog.String("email", email),
		slog.String("reset_link", ResetLink(s.linkBase, token)),
	)
	return nil
}

// ResetLink appends the token to base. base may already carry a query
// string or a fragment route such as "http://host/#reset-password".
func ResetLink(base, token string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + url.QueryEscape(token)
}
