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

// Logger is the structured logger every component derives its scoped logger from.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	case "test":
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: z.Sugar()}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, scrub(keysAndValues)...)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, scrub(keysAndValues)...)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, scrub(keysAndValues)...)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, scrub(keysAndValues)...)
}

func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Fatalw(msg, scrub(keysAndValues)...)
}

func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(scrub(keysAndValues)...)}
}

type scrubPolicy struct {
	redact      bool
	hashWallets bool
	salt        string
}

var (
	policyOnce sync.Once
	policy     scrubPolicy
)

func currentPolicy() scrubPolicy {
	policyOnce.Do(func() {
		policy = scrubPolicy{
			redact:      envFlag("LOG_REDACT", true),
			hashWallets: envFlag("LOG_HASH_WALLETS", false),
			salt:        strings.TrimSpace(os.Getenv("LOG_HASH_SALT")),
		}
	})
	return policy
}

func envFlag(name string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func scrub(kv []interface{}) []interface{} {
	p := currentPolicy()
	if len(kv) == 0 || (!p.redact && !p.hashWallets) {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		key := stringify(kv[i])
		out = append(out, key, scrubValue(p, strings.ToLower(strings.TrimSpace(key)), kv[i+1]))
	}
	if len(kv)%2 == 1 {
		out = append(out, kv[len(kv)-1])
	}
	return out
}

func scrubValue(p scrubPolicy, key string, val interface{}) interface{} {
	if p.redact && sensitiveKey(key) {
		return "[REDACTED]"
	}
	if p.hashWallets && walletKey(key) {
		return digest(p.salt, val)
	}
	switch v := val.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, inner := range v {
			m[k] = scrubValue(p, strings.ToLower(strings.TrimSpace(k)), inner)
		}
		return m
	case string:
		if p.redact && isJWT(v) {
			return "[REDACTED]"
		}
	}
	return val
}

var sensitiveFragments = []string{
	"token", "authorization", "password", "secret", "cookie", "api_key", "apikey", "signature",
}

func sensitiveKey(key string) bool {
	for _, frag := range sensitiveFragments {
		if strings.Contains(key, frag) {
			return true
		}
	}
	return false
}

func walletKey(key string) bool {
	return strings.Contains(key, "wallet") || strings.Contains(key, "voter") || strings.HasSuffix(key, "address")
}

func digest(salt string, val interface{}) string {
	raw := stringify(val)
	if raw == "" {
		return ""
	}
	h := sha256.New()
	_, _ = h.Write([]byte(salt))
	_, _ = h.Write([]byte(strings.ToLower(raw)))
	return "hash:" + hex.EncodeToString(h.Sum(nil))[:12]
}

func isJWT(s string) bool {
	parts := strings.Split(s, ".")
	return len(parts) == 3 && len(parts[0]) > 10 && len(parts[1]) > 10
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
