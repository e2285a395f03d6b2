package debug

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Debug levels
const (
	LevelOff     = 0 // No output
	LevelInfo    = 1 // Important info (device identity, errors)
	LevelLive    = 2 // Live info (captures, navigation)
	LevelVerbose = 3 // Verbose (bridge requests, config details)
	LevelTrace   = 4 // Trace (GPIO, callbacks, very low level)
)

var (
	level  atomic.Int32
	logger atomic.Pointer[zap.Logger]

	outMu sync.Mutex
	out   zapcore.WriteSyncer = zapcore.Lock(os.Stdout)
)

func init() {
	logger.Store(zap.NewNop())
}

// Init initializes the debug system with a level (0-4).
// 0 = no output
// 1 = important info (device identity, errors)
// 2 = live info (captures taken, active snapshot changes)
// 3 = verbose (bridge requests, options, config)
// 4 = trace (GPIO, callbacks)
func Init(debugLevel int) {
	level.Store(int32(debugLevel))
	rebuild()
}

// SetOutput redirects log lines to w. Used to tee logs into the web status stream.
func SetOutput(w io.Writer) {
	outMu.Lock()
	out = zapcore.Lock(zapcore.AddSync(w))
	outMu.Unlock()
	rebuild()
}

func rebuild() {
	if Level() <= LevelOff {
		logger.Store(zap.NewNop())
		return
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05.000000")
	encCfg.CallerKey = ""

	outMu.Lock()
	ws := out
	outMu.Unlock()

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), ws, zapcore.DebugLevel)
	logger.Store(zap.New(core).Named("CamGo"))
}

// Level returns the current debug level.
func Level() int {
	return int(level.Load())
}

// IsEnabled returns true if debug level is >= the requested level.
func IsEnabled(minLevel int) bool {
	return Level() >= minLevel
}

// Logger returns the underlying zap logger for structured fields.
// It is a no-op logger while debug output is off.
func Logger() *zap.Logger {
	return logger.Load()
}

// Sync flushes buffered log entries.
func Sync() {
	_ = Logger().Sync()
}

// --- Level 1 functions (Info): important info ---

// Info prints a level 1 message (important info).
func Info(format string, args ...interface{}) {
	if IsEnabled(LevelInfo) {
		Logger().Info(fmt.Sprintf(format, args...))
	}
}

// Value prints a named value in formatted form (level 1).
func Value(name string, value interface{}) {
	if IsEnabled(LevelInfo) {
		Logger().Info(fmt.Sprintf("  %s = %v", name, value))
	}
}

// Error prints a debug error (level 1+).
func Error(err error) {
	if IsEnabled(LevelInfo) && err != nil {
		Logger().Error(err.Error())
	}
}

// --- Level 2 functions (Live): real-time info ---

// Live prints a level 2 message (live info).
func Live(format string, args ...interface{}) {
	if IsEnabled(LevelLive) {
		Logger().Info("[LIVE] " + fmt.Sprintf(format, args...))
	}
}

// Shot prints a recorded capture (level 2).
func Shot(index, total int, id string) {
	if IsEnabled(LevelLive) {
		Logger().Info(fmt.Sprintf("[LIVE] Snapshot %d/%d recorded", index+1, total), zap.String("id", id))
	}
}

// --- Level 3 functions (Verbose): everything ---

// Verbose prints a level 3 message (verbose).
func Verbose(format string, args ...interface{}) {
	if IsEnabled(LevelVerbose) {
		Logger().Debug(fmt.Sprintf(format, args...))
	}
}

// PrintStruct prints a struct in formatted form (level 3).
func PrintStruct(name string, v interface{}) {
	if IsEnabled(LevelVerbose) {
		Logger().Debug(fmt.Sprintf("%s: %+v", name, v))
	}
}

// Section prints a section separator (level 3).
func Section(name string) {
	if IsEnabled(LevelVerbose) {
		l := Logger()
		l.Debug("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		l.Debug("  " + name)
		l.Debug("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	}
}

// Step prints a numbered step (level 3).
func Step(num int, description string) {
	if IsEnabled(LevelVerbose) {
		Logger().Debug(fmt.Sprintf("Step %d: %s", num, description))
	}
}

// --- Level 4 functions (Trace): very low level ---

// Trace prints a level 4 message (trace).
func Trace(format string, args ...interface{}) {
	if IsEnabled(LevelTrace) {
		Logger().Debug("[TRACE] " + fmt.Sprintf(format, args...))
	}
}

// GPIO prints a GPIO operation (level 4).
func GPIO(operation string, pin int, value interface{}) {
	if IsEnabled(LevelTrace) {
		Logger().Debug("[GPIO] "+operation, zap.Int("pin", pin), zap.Any("value", value))
	}
}
