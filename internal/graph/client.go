// Package graph wraps the graph database used as the assessment audit store.
package graph

import (
	"context"
	"errors"
	"time"
)

// Client defines the minimal contract the audit repository needs from the
// underlying graph database.
type Client interface {
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) (Result, error)
	ExecuteRead(ctx context.Context, cypher string, params map[string]any) (Result, error)
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Result is a simplified representation of a query response.
type Result struct {
	Records []Record
}

// Record groups key-value pairs returned from the graph engine.
type Record map[string]any

// String returns the value at key when it is a string.
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Float returns the value at key as a float64. Bolt returns integers as int64.
func (r Record) Float(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// Int returns the value at key as an int.
func (r Record) Int(key string) int {
	switch v := r[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Bool returns the value at key when it is a bool.
func (r Record) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// Strings returns the value at key as a string slice. Lists come back from the
// driver as []any.
func (r Record) Strings(key string) []string {
	switch v := r[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Time returns the value at key as a time. RFC 3339 strings are accepted.
func (r Record) Time(key string) time.Time {
	switch v := r[key].(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}
		}
		return t
	default:
		return time.Time{}
	}
}

// Options configures a graph client implementation.
type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
	// QueryTimeout bounds a single managed transaction. Zero uses the driver default.
	QueryTimeout time.Duration
}

// ErrMissingURI indicates the graph URI is not provided.
var ErrMissingURI = errors.New("graph URI is required")
