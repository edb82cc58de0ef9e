package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestRedisBus_RegisterAfterCloseIsRefused(t *testing.T) {
	bus := NewRedisBus(nil, "test:register", 1, zaptest.NewLogger(t))

	open := newSubscription(1, 1, nil)
	assert.True(t, bus.register(1, open))

	assert.NoError(t, bus.Close())
	assert.True(t, open.IsClosed())

	late := newSubscription(2, 1, nil)
	assert.False(t, bus.register(2, late))
	assert.NotContains(t, bus.subs, uint64(2))
}
