package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoop_DoesNotPanic(t *testing.T) {
	tel := Noop()
	ctx, done := tel.StartQuery(context.Background(), "users")
	done(3, true, nil)

	ctx2, doneMut := tel.StartMutation(ctx, "users", "create")
	doneMut(errors.New("boom"))

	tel.RecordFlush(ctx2, "users.json", 5*time.Millisecond)
}

func TestNew_NilProvidersFallBackToNoop(t *testing.T) {
	tel := New(nil, nil)
	assert.NotNil(t, tel.tracer)
	assert.NotNil(t, tel.rowsScanned)
}
