// Package logging provides logger creation.
package logging

import (
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"net/http"
	"os"
	"strings"

	"github.com/dekarrin/jellog"
	"github.com/dekarrin/potluck"
	"github.com/dekarrin/potluck/middle"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation gives when a log file is rotated. It is used by the std and zerolog
// providers; jellog manages its own file.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// RotationFromConfig returns the Rotation set in a LogConfig.
func RotationFromConfig(lc potluck.LogConfig) Rotation {
	return Rotation{
		MaxSizeMB:  lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
		MaxAgeDays: lc.MaxAgeDays,
	}
}

func (rot Rotation) writer(filename string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    rot.MaxSizeMB,
		MaxBackups: rot.MaxBackups,
		MaxAge:     rot.MaxAgeDays,
	}
}

// New creates a new logger of the given provider. If filename is blank, it will
// not log to disk, only stderr, and the stderr logger will be configured at
// trace level instead of info level.
func New(p potluck.LogProvider, filename string, rot Rotation) (potluck.Logger, error) {
	var err error

	switch p {
	case potluck.NoLog:
		return nil, errors.New("log provider cannot be NoLog")
	case potluck.Jellog:
		var logOut *jellog.FileHandler
		if filename != "" {
			logOut, err = jellog.OpenFile(filename, nil)
			if err != nil {
				return nil, fmt.Errorf("open logfile: %q: %w", filename, err)
			}
		}
		j := jellog.New(jellog.Defaults[string]().WithComponent("potluck"))

		if filename != "" {
			j.AddHandler(jellog.LvTrace, logOut)
			j.AddHandler(jellog.LvInfo, jellog.NewStderrHandler(nil))
		} else {
			j.AddHandler(jellog.LvTrace, jellog.NewStderrHandler(nil))
		}

		return jellogLogger{j: j}, nil
	case potluck.StdLog:
		var logWriter io.Writer = os.Stderr
		if filename != "" {
			logWriter = io.MultiWriter(os.Stderr, rot.writer(filename))
		}
		return stdLogger{std: stdlog.New(logWriter, "", stdlog.Ldate|stdlog.Ltime|stdlog.LUTC)}, nil
	case potluck.Zerolog:
		console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"}

		var zl zerolog.Logger
		if filename != "" {
			// the console only shows info and up once there is a file to hold
			// the rest.
			stderr := &zerolog.FilteredLevelWriter{
				Writer: zerolog.LevelWriterAdapter{Writer: console},
				Level:  zerolog.InfoLevel,
			}
			multi := zerolog.MultiLevelWriter(stderr, rot.writer(filename))
			zl = zerolog.New(multi).Level(zerolog.TraceLevel).With().Timestamp().Logger()
		} else {
			zl = zerolog.New(console).Level(zerolog.TraceLevel).With().Timestamp().Logger()
		}

		return zerologLogger{z: zl}, nil
	default:
		return nil, fmt.Errorf("unknown provider: %q", p.String())
	}
}

// NoOpLogger is a logger that performs no operations.
type NoOpLogger struct{}

func (log NoOpLogger) Debug(msg string)                              {}
func (log NoOpLogger) Warn(msg string)                               {}
func (log NoOpLogger) Trace(msg string)                              {}
func (log NoOpLogger) Info(msg string)                               {}
func (log NoOpLogger) Error(msg string)                              {}
func (log NoOpLogger) Debugf(msg string, a ...interface{})           {}
func (log NoOpLogger) Warnf(msg string, a ...interface{})            {}
func (log NoOpLogger) Tracef(msg string, a ...interface{})           {}
func (log NoOpLogger) Infof(msg string, a ...interface{})            {}
func (log NoOpLogger) Errorf(msg string, a ...interface{})           {}
func (log NoOpLogger) ErrorBreak()                                   {}
func (log NoOpLogger) InfoBreak()                                    {}
func (log NoOpLogger) WarnBreak()                                    {}
func (log NoOpLogger) TraceBreak()                                   {}
func (log NoOpLogger) DebugBreak()                                   {}
func (log NoOpLogger) LogResult(req *http.Request, r potluck.Result) {}

type stdLogger struct {
	std *stdlog.Logger
}

func (log stdLogger) Trace(msg string) {
	log.std.Print("TRACE " + msg)
}

func (log stdLogger) Tracef(msg string, a ...interface{}) {
	log.std.Printf("TRACE "+msg, a...)
}

func (log stdLogger) TraceBreak() {
	log.std.Printf("")
}

func (log stdLogger) Debug(msg string) {
	log.std.Print("DEBUG " + msg)
}

func (log stdLogger) Debugf(msg string, a ...interface{}) {
	log.std.Printf("DEBUG "+msg, a...)
}

func (log stdLogger) DebugBreak() {
	log.std.Printf("")
}

func (log stdLogger) Info(msg string) {
	log.std.Print("INFO  " + msg)
}

func (log stdLogger) Infof(msg string, a ...interface{}) {
	log.std.Printf("INFO  "+msg, a...)
}

func (log stdLogger) InfoBreak() {
	log.std.Printf("")
}

func (log stdLogger) Warn(msg string) {
	log.std.Print("WARN  " + msg)
}

func (log stdLogger) Warnf(msg string, a ...interface{}) {
	log.std.Printf("WARN  "+msg, a...)
}

func (log stdLogger) WarnBreak() {
	log.std.Printf("")
}

func (log stdLogger) Error(msg string) {
	log.std.Print("ERROR " + msg)
}

func (log stdLogger) Errorf(msg string, a ...interface{}) {
	log.std.Printf("ERROR "+msg, a...)
}

func (log stdLogger) ErrorBreak() {
	log.std.Printf("")
}

func (log stdLogger) LogResult(req *http.Request, r potluck.Result) {
	logHTTPResponse(log, req, r)
}

type jellogLogger struct {
	j jellog.Logger[string]
}

func (log jellogLogger) Debug(msg string) {
	log.j.Debug(msg)
}

func (log jellogLogger) Debugf(msg string, a ...interface{}) {
	log.j.Debugf(msg, a...)
}

func (log jellogLogger) Warn(msg string) {
	log.j.Warn(msg)
}

func (log jellogLogger) Warnf(msg string, a ...interface{}) {
	log.j.Warnf(msg, a...)
}

func (log jellogLogger) Trace(msg string) {
	log.j.Trace(msg)
}

func (log jellogLogger) Tracef(msg string, a ...interface{}) {
	log.j.Tracef(msg, a...)
}

func (log jellogLogger) Info(msg string) {
	log.j.Info(msg)
}

func (log jellogLogger) Infof(msg string, a ...interface{}) {
	log.j.Infof(msg, a...)
}

func (log jellogLogger) Error(msg string) {
	log.j.Error(msg)
}

func (log jellogLogger) Errorf(msg string, a ...interface{}) {
	log.j.Errorf(msg, a...)
}

func (log jellogLogger) ErrorBreak() {
	log.j.InsertBreak(jellog.LvError)
}

func (log jellogLogger) InfoBreak() {
	log.j.InsertBreak(jellog.LvInfo)
}

func (log jellogLogger) WarnBreak() {
	log.j.InsertBreak(jellog.LvWarn)
}

func (log jellogLogger) TraceBreak() {
	log.j.InsertBreak(jellog.LvTrace)
}

func (log jellogLogger) DebugBreak() {
	log.j.InsertBreak(jellog.LvDebug)
}

func (log jellogLogger) LogResult(req *http.Request, r potluck.Result) {
	logHTTPResponse(log, req, r)
}

// zerologLogger writes structured events. Breaks have no meaning for
// structured output and are dropped.
type zerologLogger struct {
	z zerolog.Logger
}

func (log zerologLogger) Trace(msg string) {
	log.z.Trace().Msg(msg)
}

func (log zerologLogger) Tracef(msg string, a ...interface{}) {
	log.z.Trace().Msgf(msg, a...)
}

func (log zerologLogger) Debug(msg string) {
	log.z.Debug().Msg(msg)
}

func (log zerologLogger) Debugf(msg string, a ...interface{}) {
	log.z.Debug().Msgf(msg, a...)
}

func (log zerologLogger) Info(msg string) {
	log.z.Info().Msg(msg)
}

func (log zerologLogger) Infof(msg string, a ...interface{}) {
	log.z.Info().Msgf(msg, a...)
}

func (log zerologLogger) Warn(msg string) {
	log.z.Warn().Msg(msg)
}

func (log zerologLogger) Warnf(msg string, a ...interface{}) {
	log.z.Warn().Msgf(msg, a...)
}

func (log zerologLogger) Error(msg string) {
	log.z.Error().Msg(msg)
}

func (log zerologLogger) Errorf(msg string, a ...interface{}) {
	log.z.Error().Msgf(msg, a...)
}

func (log zerologLogger) TraceBreak() {}
func (log zerologLogger) DebugBreak() {}
func (log zerologLogger) InfoBreak()  {}
func (log zerologLogger) WarnBreak()  {}
func (log zerologLogger) ErrorBreak() {}

func (log zerologLogger) LogResult(req *http.Request, r potluck.Result) {
	ev := log.z.Info()
	if r.IsErr {
		ev = log.z.Error()
	}

	ev.Str("remote", remoteIP(req)).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", r.Status).
		Str("request_id", middle.GetRequestID(req)).
		Msg(r.InternalMsg)
}

func remoteIP(req *http.Request) string {
	// we don't really care about the ephemeral port from the client end
	remoteAddrParts := strings.SplitN(req.RemoteAddr, ":", 2)
	return remoteAddrParts[0]
}

// FormatResult gives the line that text-based loggers write for a response.
func FormatResult(req *http.Request, r potluck.Result) string {
	line := fmt.Sprintf("%s %s %s: HTTP-%d %s", remoteIP(req), req.Method, req.URL.Path, r.Status, r.InternalMsg)
	if id := middle.GetRequestID(req); id != "" {
		line = "[" + id + "] " + line
	}
	return line
}

func logHTTPResponse(log potluck.Logger, req *http.Request, r potluck.Result) {
	if r.IsErr {
		log.Error(FormatResult(req, r))
	} else {
		log.Info(FormatResult(req, r))
	}
}
