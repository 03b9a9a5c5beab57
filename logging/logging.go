// Package logging provides structured console output for the
// orchestration pipeline. The checkpoint store is the durable record;
// log lines exist for real-time monitoring only.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// ParseLevel maps a configuration string to a Level. Unknown values
// fall back to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes structured key=value lines to a single writer.
type Logger struct {
	mu        sync.Mutex
	output    io.Writer
	minLevel  Level
	component string
	taskID    string
}

// levelPriority maps levels to numeric priority for filtering.
var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

var defaultLogger = &Logger{output: os.Stderr, minLevel: LevelInfo}

// Default returns the shared process-wide logger.
func Default() *Logger {
	return defaultLogger
}

// New creates a new Logger writing to stdout at INFO level.
func New() *Logger {
	return &Logger{
		output:   os.Stdout,
		minLevel: LevelInfo,
	}
}

// WithComponent returns a new logger tagged with the given component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		output:    l.output,
		minLevel:  l.minLevel,
		component: component,
		taskID:    l.taskID,
	}
}

// WithTaskID returns a new logger that includes the task ID in every line.
func (l *Logger) WithTaskID(taskID string) *Logger {
	return &Logger{
		output:    l.output,
		minLevel:  l.minLevel,
		component: l.component,
		taskID:    taskID,
	}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.minLevel = level
}

// SetOutput sets the output writer.
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

// formatFields formats a map of fields as key=value pairs.
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	var parts []string
	for k, v := range fields {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return " " + strings.Join(parts, " ")
}

// log writes a log entry in traditional format: LEVEL TIMESTAMP [component] message key=value ...
func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	if levelPriority[level] < levelPriority[l.minLevel] {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	var fieldStr string
	if len(fields) > 0 && fields[0] != nil {
		fieldStr = formatFields(fields[0])
	}
	if l.taskID != "" {
		fieldStr = " task_id=" + l.taskID + fieldStr
	}

	var line string
	if l.component != "" {
		line = fmt.Sprintf("%-5s %s [%s] %s%s\n", level, timestamp, l.component, msg, fieldStr)
	} else {
		line = fmt.Sprintf("%-5s %s %s%s\n", level, timestamp, msg, fieldStr)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write([]byte(line))
}

// --- Pipeline logging methods ---
// Called by the engine around checkpointed transitions so the console
// mirrors what the store records.

// TaskStart logs the creation of a task record.
func (l *Logger) TaskStart(taskID, targetAgent string) {
	l.Info("task_start", map[string]interface{}{
		"task_id":      taskID,
		"target_agent": targetAgent,
	})
}

// StageComplete logs one pipeline stage finishing.
func (l *Logger) StageComplete(taskID, stage, status string) {
	l.Debug("stage_complete", map[string]interface{}{
		"task_id": taskID,
		"stage":   stage,
		"status":  status,
	})
}

// DispatchComplete logs a successful handler invocation.
func (l *Logger) DispatchComplete(taskID, agentID string) {
	l.Info("dispatch_complete", map[string]interface{}{
		"task_id":  taskID,
		"agent_id": agentID,
	})
}

// DispatchError logs a failed handler invocation.
func (l *Logger) DispatchError(taskID, agentID string, err error) {
	l.Error("dispatch_error", map[string]interface{}{
		"task_id":  taskID,
		"agent_id": agentID,
		"error":    err.Error(),
	})
}

// TaskComplete logs the end of a pipeline pass.
func (l *Logger) TaskComplete(taskID, status string) {
	l.Info("task_complete", map[string]interface{}{
		"task_id": taskID,
		"status":  status,
	})
}

// AgentRegistered logs a handler joining the registry.
func (l *Logger) AgentRegistered(agentID string, capabilities []string) {
	l.Info("agent_registered", map[string]interface{}{
		"agent_id":     agentID,
		"capabilities": strings.Join(capabilities, ","),
	})
}

// AgentDeregistered logs a handler leaving the registry.
func (l *Logger) AgentDeregistered(agentID string) {
	l.Info("agent_deregistered", map[string]interface{}{
		"agent_id": agentID,
	})
}

// BridgeRequest logs a toolchain bridge invocation.
func (l *Logger) BridgeRequest(bridge, operation string, duration time.Duration, err error) {
	fields := map[string]interface{}{
		"bridge":    bridge,
		"operation": operation,
		"duration":  duration.String(),
	}
	if err != nil {
		fields["error"] = err.Error()
		l.Error("bridge_error", fields)
		return
	}
	l.Debug("bridge_request", fields)
}

// HTTPRequest logs an API request after it is served.
func (l *Logger) HTTPRequest(method, path string, status int, duration time.Duration) {
	l.Debug("http_request", map[string]interface{}{
		"method":   method,
		"path":     path,
		"status":   status,
		"duration": duration.String(),
	})
}
