package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"
)

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the shared line-oriented logger. All structured output in the
// service funnels through it so tests can capture and redirect it in one place.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// Emit writes one JSON log line with ts and level added. Marshal failures are
// reported as a fixed error line rather than being silently dropped.
func Emit(level, msg string, fields map[string]any) {
	entry := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		entry[k] = v
	}
	entry["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level
	entry["msg"] = msg
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"level":"error","msg":"log marshal failed"}`)
		return
	}
	Logger().Println(string(data))
}

// Info emits an info-level line.
func Info(msg string, fields map[string]any) { Emit("info", msg, fields) }

// Warn emits a warn-level line.
func Warn(msg string, fields map[string]any) { Emit("warn", msg, fields) }

// Error emits an error-level line.
func Error(msg string, fields map[string]any) { Emit("error", msg, fields) }
