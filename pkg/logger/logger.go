package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	mu    sync.RWMutex
	sugar = zap.NewNop().Sugar()
)

// Init builds the process-wide logger. Anything other than "production"
// gets the development encoder with debug level enabled.
func Init(env string) {
	var cfg zap.Config
	switch strings.ToLower(env) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	case "test":
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed, falling back to nop: %v\n", err)
		return
	}

	mu.Lock()
	sugar = l.Sugar()
	mu.Unlock()
}

func Sync() {
	_ = current().Sync()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Debug(msg string, keysAndValues ...interface{}) {
	current().Debugw(msg, sanitizeKVs(keysAndValues)...)
}

func Info(msg string, keysAndValues ...interface{}) {
	current().Infow(msg, sanitizeKVs(keysAndValues)...)
}

func Warn(msg string, keysAndValues ...interface{}) {
	current().Warnw(msg, sanitizeKVs(keysAndValues)...)
}

func Error(msg string, keysAndValues ...interface{}) {
	current().Errorw(msg, sanitizeKVs(keysAndValues)...)
}

func Fatal(msg string, keysAndValues ...interface{}) {
	current().Fatalw(msg, sanitizeKVs(keysAndValues)...)
}

// sanitizeKVs turns a lone trailing error into an "error" pair and masks
// values whose key looks sensitive.
func sanitizeKVs(kv []interface{}) []interface{} {
	if len(kv) == 0 {
		return kv
	}
	if len(kv) == 1 {
		if err, ok := kv[0].(error); ok {
			return []interface{}{"error", err}
		}
	}

	out := make([]interface{}, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i == len(kv)-1 {
			out = append(out, "extra", kv[i])
			break
		}
		key := strings.ToLower(strings.TrimSpace(fmt.Sprint(kv[i])))
		out = append(out, kv[i], sanitizeValue(key, kv[i+1]))
	}
	return out
}

func sanitizeValue(key string, val interface{}) interface{} {
	switch {
	case strings.Contains(key, "token"),
		strings.Contains(key, "authorization"),
		strings.Contains(key, "password"),
		strings.Contains(key, "secret"):
		return "[REDACTED]"
	case strings.Contains(key, "email"):
		return hashValue(val)
	}
	return val
}

func hashValue(val interface{}) string {
	raw := strings.TrimSpace(fmt.Sprint(val))
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(raw))
	return "hash:" + hex.EncodeToString(sum[:])[:12]
}
