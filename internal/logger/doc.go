// Package logger wraps zap's SugaredLogger with a process-wide instance and
// context helpers (ToContext/FromContext/WithName/WithKV), so call sites can
// log through the context without threading a logger argument everywhere.
package logger
