// Package bus publishes task lifecycle events to interested observers.
//
// The MessageBus interface is a thin pub/sub layer over either an
// in-memory dispatcher or NATS. Subjects use NATS conventions:
// dot-separated tokens with "*" matching one token and ">" matching the
// rest, so a monitor can watch a single task (task.t1.status) or the
// whole fleet (task.>).
package bus

import (
	"errors"
	"strings"
)

// Common errors.
var (
	ErrClosed         = errors.New("bus closed")
	ErrInvalidSubject = errors.New("invalid subject")
)

// Message is a payload received from the bus.
type Message struct {
	// Subject the message was published to.
	Subject string

	// Data is the message payload.
	Data []byte
}

// MessageBus provides publish/subscribe messaging for task events.
type MessageBus interface {
	// Publish sends a message to all subscribers whose pattern
	// matches the subject.
	Publish(subject string, data []byte) error

	// Subscribe creates a subscription to a subject pattern.
	// Patterns may use "*" and ">" wildcards.
	Subscribe(pattern string) (Subscription, error)

	// Close shuts down the bus.
	Close() error
}

// Subscription represents an active subscription.
type Subscription interface {
	// Messages returns the channel for incoming messages.
	// The channel is closed when the subscription ends.
	Messages() <-chan *Message

	// Unsubscribe cancels the subscription.
	Unsubscribe() error
}

// Config holds common bus configuration.
type Config struct {
	// BufferSize for subscription channels.
	// Default: 256
	BufferSize int
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize: 256,
	}
}

// ValidateSubject checks that a publish subject is well formed:
// non-empty dot-separated tokens, no wildcards.
func ValidateSubject(subject string) error {
	if subject == "" {
		return ErrInvalidSubject
	}
	for _, tok := range strings.Split(subject, ".") {
		if tok == "" || tok == "*" || tok == ">" {
			return ErrInvalidSubject
		}
	}
	return nil
}

// ValidatePattern checks a subscription pattern. Wildcards are allowed;
// ">" must be the final token.
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return ErrInvalidSubject
	}
	toks := strings.Split(pattern, ".")
	for i, tok := range toks {
		if tok == "" {
			return ErrInvalidSubject
		}
		if tok == ">" && i != len(toks)-1 {
			return ErrInvalidSubject
		}
	}
	return nil
}

// SubjectMatches reports whether a concrete subject matches a
// subscription pattern under NATS wildcard rules.
func SubjectMatches(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")

	for i, tok := range pt {
		if tok == ">" {
			return len(st) > i
		}
		if i >= len(st) {
			return false
		}
		if tok != "*" && tok != st[i] {
			return false
		}
	}
	return len(pt) == len(st)
}
