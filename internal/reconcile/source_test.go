package reconcile

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ruleomatic/internal/types"
)

type fakeSource struct {
	procs map[string][]types.ProcessInfo
	err   error
}

func (f fakeSource) IsActive(name string) bool {
	_, ok := f.procs[strings.ToLower(name)]
	return ok
}

func (f fakeSource) Processes(_ context.Context, name string) ([]types.ProcessInfo, error) {
	return f.procs[strings.ToLower(name)], f.err
}

func TestForRules(t *testing.T) {
	src := fakeSource{procs: map[string][]types.ProcessInfo{
		"game": {{PID: 7, Name: "Game", Nice: types.Ptr(5)}},
	}}
	rules := []types.EnrichedRule{
		{Data: types.Rule{Name: types.Ptr("GAME"), Nice: types.Ptr(0)}},
		{Data: types.Rule{Name: types.Ptr("idle-thing"), Nice: types.Ptr(19)}},
		{Data: types.Rule{Type: types.Ptr("Game")}},
	}

	got, err := ForRules(context.Background(), src, rules)
	require.NoError(t, err)
	require.Len(t, got, 3)

	require.True(t, got[0].Active())
	assert.Equal(t, 7, got[0].Process.PID)
	assert.Equal(t, "Nice 5! (want 0)", got[0].StatusLine())

	assert.False(t, got[1].Active())
	assert.False(t, got[2].Active())
}

func TestForRule_SourceError(t *testing.T) {
	boom := errors.New("boom")
	src := fakeSource{procs: map[string][]types.ProcessInfo{"game": nil}, err: boom}

	_, err := ForRule(context.Background(), src, types.EnrichedRule{Data: types.Rule{Name: types.Ptr("game")}})
	assert.ErrorIs(t, err, boom)
}
