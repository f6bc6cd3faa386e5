package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRule_UnmarshalIgnoresUnknownFields(t *testing.T) {
	var r Rule
	err := json.Unmarshal([]byte(`{"name":"Steam","type":"Game","nice":-5,"extra":true,"cgroup":"cpu80"}`), &r)
	require.NoError(t, err)

	assert.Equal(t, "Steam", r.NameOr(""))
	require.NotNil(t, r.Type)
	assert.Equal(t, "Game", *r.Type)
	require.NotNil(t, r.Nice)
	assert.Equal(t, -5, *r.Nice)
	assert.Nil(t, r.IOClass)
	assert.False(t, r.IsEmpty())
}

func TestRule_IsEmpty(t *testing.T) {
	var r Rule
	require.NoError(t, json.Unmarshal([]byte(`{}`), &r))
	assert.True(t, r.IsEmpty())
	assert.Equal(t, "unknown", r.NameOr("unknown"))
}

func TestRule_SearchFields(t *testing.T) {
	r := Rule{
		Name:        Ptr("foo"),
		Cgroup:      Ptr("system.slice"),
		Nice:        Ptr(-3),
		OOMScoreAdj: Ptr(500),
	}
	assert.Equal(t, []string{"foo", "system.slice", "-3", "500"}, r.SearchFields())
}

func TestEnrichedRule_Category(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/etc/ananicy.d/00-default/games.rules", "00-default"},
		{"/etc/ananicy.d/games.rules", "ananicy.d"},
		{"games.rules", "root"},
		{"/games.rules", "root"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			e := EnrichedRule{SourceFile: tt.path}
			assert.Equal(t, tt.want, e.Category())
		})
	}
}

func TestEnrichedRule_NameKey(t *testing.T) {
	key, ok := EnrichedRule{Data: Rule{Name: Ptr("Firefox")}}.NameKey()
	assert.True(t, ok)
	assert.Equal(t, "firefox", key)

	_, ok = EnrichedRule{}.NameKey()
	assert.False(t, ok)
}
