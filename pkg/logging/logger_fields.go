package logging

import (
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Domain fields

func Component(name string) Field {
	return String("component", name)
}

// Pass names a coupling pass ("wall", "soil").
func Pass(name string) Field {
	return String("pass", name)
}

func NodeID(id int64) Field {
	return Int64("node_id", id)
}

func ElementID(id int64) Field {
	return Int64("element_id", id)
}

// AnchorID is the component index of an anchor.
func AnchorID(id int) Field {
	return Int("anchor_id", id)
}

func Radius(r float64) Field {
	return Float64("radius", r)
}

func Reason(r string) Field {
	return String("reason", r)
}

func State(s string) Field {
	return String("state", s)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}

func Path(p string) Field {
	return String("path", p)
}
