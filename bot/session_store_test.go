package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/clipbot/wizard"
)

func TestMemorySessionStore(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(nil)

	_, ok, err := store.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	s := wizard.NewSeries()
	_, err = s.Advance(wizard.Input{Kind: wizard.InputText, Text: "Dark"})
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, 7, s))

	got, ok, err := store.Get(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	title, isTitle := got.(*wizard.TitleSession)
	require.True(t, isTitle)
	assert.Equal(t, wizard.FlowSeries, title.Flow())
	assert.Equal(t, wizard.StateAwaitingThumbnail, title.State())
	assert.Equal(t, "Dark", title.Draft.Name)

	// the stored copy is independent of the caller's value
	_, err = s.Advance(wizard.Input{Kind: wizard.InputPhoto, Media: wizard.Media{FileID: "p"}})
	require.NoError(t, err)
	again, _, err := store.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, wizard.StateAwaitingThumbnail, again.State())

	removed, err := store.Delete(ctx, 7)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = store.Delete(ctx, 7)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMemorySessionStoreKeepsVariants(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(nil)

	bs, err := wizard.NewBroadcast(wizard.BroadcastImage)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, 1, bs))
	require.NoError(t, store.Put(ctx, 2, wizard.NewPopular()))

	got, _, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, wizard.BroadcastImage, got.(*wizard.BroadcastSession).Kind)

	got, _, err = store.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, wizard.FlowPopular, got.Flow())
	assert.Equal(t, wizard.StateAwaitingDocument, got.State())
}
