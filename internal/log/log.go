// Package log centralizes structured logging for the runtime, the way
// _examples/TheEntropyCollective-noisefs/pkg/common/logging centralizes a
// leveled logger per component — except backed by go.uber.org/zap instead
// of a hand-rolled writer, since zap is already part of this corpus's
// dependency surface (pulled in transitively by noisefs's libp2p stack)
// and is the natural fit for a library that logs lifecycle events rather
// than user-facing output.
package log

import "go.uber.org/zap"

var base = must(zap.NewProduction())

func must(l *zap.Logger, err error) *zap.Logger {
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// SetGlobal replaces the base logger, for tests and embedding
// applications that want the runtime's logs routed into their own sink.
func SetGlobal(l *zap.Logger) { base = l }

// Node returns a logger scoped to the runtime singleton.
func Node() *zap.Logger { return base.Named("node") }

// Worker returns a logger scoped to one worker goroutine.
func Worker(idx int) *zap.Logger { return base.Named("worker").With(zap.Int("worker", idx)) }

// Queue returns a logger scoped to one user-facing Queue object.
func Queue(id string) *zap.Logger { return base.Named("queue").With(zap.String("queue", id)) }

// Action returns a logger scoped to one registered Action.
func Action(id uint32) *zap.Logger { return base.Named("action").With(zap.Uint32("action", id)) }

// Hazard returns a logger scoped to the hazard-pointer module.
func Hazard() *zap.Logger { return base.Named("hazard") }
