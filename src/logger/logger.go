// Package logger provides the printf-style loggers used by every component.
// Messages carry a bracketed component prefix, e.g. "[Mapper] ...".
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Logger defines the interface for logging throughout the application.
// Different implementations can be used for different contexts (console, silent, etc.)
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// ConsoleLogger writes one line per message. Info and Debug go to out, Warn
// and Error to errOut. Debug lines are dropped unless verbose is set.
// It is safe for concurrent use; the mapper logs from worker goroutines.
type ConsoleLogger struct {
	mu      sync.Mutex
	out     io.Writer
	errOut  io.Writer
	verbose bool
}

func NewConsoleLogger() *ConsoleLogger {
	return NewWriterLogger(os.Stdout, os.Stderr)
}

// NewStderrLogger writes every level to stderr, leaving stdout to command
// output and to the MCP protocol stream.
func NewStderrLogger() *ConsoleLogger {
	return NewWriterLogger(os.Stderr, os.Stderr)
}

// NewWriterLogger logs to arbitrary writers.
func NewWriterLogger(out, errOut io.Writer) *ConsoleLogger {
	return &ConsoleLogger{out: out, errOut: errOut}
}

// SetVerbose enables or disables debug output.
func (c *ConsoleLogger) SetVerbose(verbose bool) {
	c.mu.Lock()
	c.verbose = verbose
	c.mu.Unlock()
}

func (c *ConsoleLogger) Info(msg string, args ...interface{}) {
	c.write(c.out, "INFO", msg, args)
}

func (c *ConsoleLogger) Warn(msg string, args ...interface{}) {
	c.write(c.errOut, "WARN", msg, args)
}

func (c *ConsoleLogger) Error(msg string, args ...interface{}) {
	c.write(c.errOut, "ERROR", msg, args)
}

func (c *ConsoleLogger) Debug(msg string, args ...interface{}) {
	c.mu.Lock()
	verbose := c.verbose
	c.mu.Unlock()
	if verbose {
		c.write(c.out, "DEBUG", msg, args)
	}
}

func (c *ConsoleLogger) write(w io.Writer, level, msg string, args []interface{}) {
	line := fmt.Sprintf("["+level+"] "+msg+"\n", args...)

	c.mu.Lock()
	defer c.mu.Unlock()
	io.WriteString(w, line)
}

// SilentLogger discards all log messages.
// Used when command output must stay machine-readable (e.g. --json).
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (s *SilentLogger) Info(msg string, args ...interface{})  {}
func (s *SilentLogger) Warn(msg string, args ...interface{})  {}
func (s *SilentLogger) Error(msg string, args ...interface{}) {}
func (s *SilentLogger) Debug(msg string, args ...interface{}) {}
