package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type failing struct{ err error }

func (f failing) Publish(context.Context, Event) error { return f.err }

func TestMulti_DeliversToAllAndJoinsErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	a, b := &Recorder{}, &Recorder{}
	m := Multi{a, failing{err: boom}, nil, b}

	err := m.Publish(context.Background(), Event{Type: SessionIssued, IdentityID: "id"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []Type{SessionIssued}, a.Types())
	assert.Equal(t, []Type{SessionIssued}, b.Types())
}

func TestNop(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Nop{}.Publish(context.Background(), Event{}))
	assert.NoError(t, Multi{}.Publish(context.Background(), Event{}))
}
