// Package nlog is the node's structured logger. It follows the
// go-ethereum log idiom used throughout that codebase's handler.go and
// worker.go: leveled methods taking a message plus alternating
// key/value pairs, a terminal formatter that colorizes by level when
// its output is a terminal, and a Crit level that logs a banner and terminates
// the process.
package nlog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCrit
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelCrit:
		return "CRIT"
	default:
		return "?????"
	}
}

var levelColor = map[Level]color.Attribute{
	LevelTrace: color.FgWhite,
	LevelDebug: color.FgCyan,
	LevelInfo:  color.FgGreen,
	LevelWarn:  color.FgYellow,
	LevelError: color.FgRed,
	LevelCrit:  color.FgHiRed,
}

// Logger is implemented by every component that needs to emit logs; the
// node wires a single root Logger that every subsystem derives a named
// child from via New.
type Logger interface {
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	// Crit logs a "CRITICAL ERROR" banner and terminates the process.
	// This is the fatal fence for a worker: any error reaching the
	// outermost wrapper must end here.
	Crit(msg string, ctx ...interface{})
	New(ctx ...interface{}) Logger
}

type logger struct {
	mu     *sync.Mutex
	out    io.Writer
	color  bool
	module string
	ctx    []interface{}
	level  Level
	exit   func(int)
}

// Root is the process-wide default logger, writing to stderr.
var Root Logger = newLogger(os.Stderr, nil)

func newLogger(w io.Writer, ctx []interface{}) *logger {
	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd())
	}
	out := w
	if useColor {
		if f, ok := w.(*os.File); ok {
			out = colorable.NewColorable(f)
		}
	}
	return &logger{
		mu:    &sync.Mutex{},
		out:   out,
		color: useColor,
		ctx:   ctx,
		level: LevelTrace,
		exit:  os.Exit,
	}
}

// New returns a child logger with the given keys merged into every
// subsequent line, e.g. log.New("peer", addr).
func (l *logger) New(ctx ...interface{}) Logger {
	child := &logger{
		mu:     l.mu,
		out:    l.out,
		color:  l.color,
		module: l.module,
		ctx:    append(append([]interface{}{}, l.ctx...), ctx...),
		level:  l.level,
		exit:   l.exit,
	}
	return child
}

func (l *logger) write(level Level, msg string, ctx []interface{}) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var b strings.Builder
	ts := time.Now().Format("2006-01-02T15:04:05.000")
	levelStr := level.String()
	if l.color {
		c := color.New(levelColor[level]).SprintFunc()
		fmt.Fprintf(&b, "%s [%s] %s", ts, c(levelStr), msg)
	} else {
		fmt.Fprintf(&b, "%s [%s] %s", ts, levelStr, msg)
	}
	all := append(append([]interface{}{}, l.ctx...), ctx...)
	for i := 0; i+1 < len(all); i += 2 {
		fmt.Fprintf(&b, " %v=%v", all[i], all[i+1])
	}
	if level >= LevelError {
		fmt.Fprintf(&b, " caller=%v", stack.Caller(2))
	}
	b.WriteByte('\n')
	io.WriteString(l.out, b.String())
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.write(LevelTrace, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.write(LevelDebug, msg, ctx) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.write(LevelInfo, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.write(LevelWarn, msg, ctx) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.write(LevelError, msg, ctx) }

func (l *logger) Crit(msg string, ctx ...interface{}) {
	l.write(LevelCrit, "CRITICAL ERROR: "+msg, ctx)
	l.exit(1)
}

// New creates a named child of Root, e.g. nlog.New("module", "txpool").
func New(ctx ...interface{}) Logger {
	return Root.New(ctx...)
}
