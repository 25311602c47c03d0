// Package logging classifies transport errors so callers can decide whether
// to retry, skip or surface them.
package logging

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"
)

func restError(err error) *discordgo.RESTError {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		return restErr
	}
	return nil
}

func restStatus(err error) int {
	if restErr := restError(err); restErr != nil && restErr.Response != nil {
		return restErr.Response.StatusCode
	}
	return 0
}

// IsRateLimit reports whether err is a Discord 429.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if restStatus(err) == http.StatusTooManyRequests {
		return true
	}
	var rl *discordgo.RateLimitError
	if errors.As(err, &rl) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "rate_limit") || strings.Contains(msg, "429")
}

// IsServerError reports whether err is a Discord 5xx.
func IsServerError(err error) bool {
	status := restStatus(err)
	return status >= 500 && status < 600
}

// IsNotFound reports whether err means the channel, message or user is gone.
func IsNotFound(err error) bool {
	restErr := restError(err)
	if restErr == nil {
		return false
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownUser:
			return true
		}
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}
