// Package toast carries short user-facing notices from console actions.
package toast

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Toast is one notice.
type Toast struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Toaster shows notices to the operator.
type Toaster interface {
	Success(message string)
	Error(message string)
}

// LogToaster writes notices to the global logger.
type LogToaster struct{}

func (LogToaster) Success(message string) {
	log.Info().Str("toast", string(LevelSuccess)).Msg(message)
}

func (LogToaster) Error(message string) {
	log.Warn().Str("toast", string(LevelError)).Msg(message)
}

// Recorder keeps every notice in memory. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *Recorder) add(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, Toast{Level: level, Message: message, At: time.Now()})
}

func (r *Recorder) Success(message string) { r.add(LevelSuccess, message) }

func (r *Recorder) Error(message string) { r.add(LevelError, message) }

// All returns a copy of the recorded notices, oldest first.
func (r *Recorder) All() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Toast, len(r.toasts))
	copy(out, r.toasts)
	return out
}

// Last returns the newest notice.
func (r *Recorder) Last() (Toast, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.toasts) == 0 {
		return Toast{}, false
	}
	return r.toasts[len(r.toasts)-1], true
}
