package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/id"
	"stockflow/internal/domain"
)

type doc struct {
	id     id.ID
	status string
}

func (d *doc) JournalEntry() Entry {
	return Entry{EntityType: "delivery_note", EntityID: d.id, Action: d.status}
}

type captureRecorder struct {
	entries []Entry
	err     error
}

func (r *captureRecorder) Record(_ context.Context, e Entry) error {
	r.entries = append(r.entries, e)
	return r.err
}

func TestRegister(t *testing.T) {
	rec := &captureRecorder{}
	hooks := domain.NewHookRegistry[*doc]()
	Register(hooks, rec)

	d := &doc{id: id.New(), status: "draft"}
	ctx := context.Background()

	require.NoError(t, hooks.RunAfterCreate(ctx, d))
	d.status = "confirmed"
	require.NoError(t, hooks.RunAfterTransition(ctx, d))

	require.Len(t, rec.entries, 2)
	assert.Equal(t, "delivery_note.created", rec.entries[0].EventType())
	assert.Equal(t, "delivery_note.confirmed", rec.entries[1].EventType())
}

func TestHook_PropagatesRecorderError(t *testing.T) {
	rec := &captureRecorder{err: errors.New("disk full")}
	hook := Hook[*doc](rec, domain.AfterTransition)

	err := hook(context.Background(), &doc{status: "voided"})
	assert.ErrorContains(t, err, "delivery_note.voided")
}
