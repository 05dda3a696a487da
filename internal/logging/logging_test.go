package logging_test

import (
	"bytes"
	"testing"

	"github.com/Mohsinsiddi/zkcstake/internal/logging"
	"github.com/stretchr/testify/assert"
)

func TestQuietByDefault(t *testing.T) {
	var buf bytes.Buffer
	l := logging.New(&buf, false)

	l.Info("connected", "account", "0xabc")
	assert.Empty(t, buf.String())

	l.Warn("refresh failed", "err", "timeout")
	assert.Contains(t, buf.String(), "refresh failed")
	assert.Contains(t, buf.String(), "timeout")
}

func TestVerboseLogsDebug(t *testing.T) {
	var buf bytes.Buffer
	l := logging.New(&buf, true)

	l.Debug("polling receipt", "hash", "0x01")
	assert.Contains(t, buf.String(), "polling receipt")
	assert.Contains(t, buf.String(), "zkcstake")
}
