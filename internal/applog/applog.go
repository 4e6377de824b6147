// Package applog is a thin convenience wrapper around log.Printf using
// the "[component] message" prefix convention the rest of this codebase
// follows.
package applog

import "log"

// Logger prefixes every line with a fixed component tag.
type Logger struct {
	component string
}

// New returns a Logger that prefixes every message with "[component]".
func New(component string) *Logger {
	return &Logger{component: component}
}

func (l *Logger) Printf(format string, args ...any) {
	log.Printf("[%s] "+format, append([]any{l.component}, args...)...)
}

func (l *Logger) Println(args ...any) {
	log.Println(append([]any{"[" + l.component + "]"}, args...)...)
}
