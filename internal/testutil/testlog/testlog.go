// Package testlog wires the test logging profile into package tests.
package testlog

import (
	"testing"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/adbctl/internal/logging"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Debug().Str("test", t.Name()).Msg("starting")
}
