package rules

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ruleomatic/internal/types"
)

type staticLoader struct {
	rules []types.EnrichedRule
	err   error
	calls int
}

func (s *staticLoader) LoadAll() ([]types.EnrichedRule, error) {
	s.calls++
	out := make([]types.EnrichedRule, len(s.rules))
	copy(out, s.rules)
	return out, s.err
}

func rule(name, file string) types.EnrichedRule {
	return types.EnrichedRule{Data: types.Rule{Name: types.Ptr(name)}, SourceFile: file}
}

func shadowFlags(rules []types.EnrichedRule) []bool {
	out := make([]bool, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.Shadowed)
	}
	return out
}

func TestResolveShadowing_LayeredDirectories(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	writeRules(t, filepath.Join(a, "game.rules"), `{"name":"game","nice":-5}`)
	writeRules(t, filepath.Join(b, "game.rules"), `{"name":"game","nice":2}`)

	loaded, err := NewRepository([]string{a, b}).LoadAll()
	require.NoError(t, err)
	ResolveShadowing(loaded)

	require.Len(t, loaded, 2)
	assert.Equal(t, filepath.Join(a, "game.rules"), loaded[0].SourceFile)
	assert.True(t, loaded[0].Shadowed)
	assert.Equal(t, filepath.Join(b, "game.rules"), loaded[1].SourceFile)
	assert.False(t, loaded[1].Shadowed)
}

func TestResolveShadowing_CaseInsensitive(t *testing.T) {
	rules := []types.EnrichedRule{
		rule("Steam", "/a/x.rules"),
		rule("other", "/a/x.rules"),
		rule("STEAM", "/b/x.rules"),
		rule("steam", "/c/x.rules"),
	}
	ResolveShadowing(rules)
	assert.Equal(t, []bool{true, false, true, false}, shadowFlags(rules))
}

func TestResolveShadowing_NamelessNeverShadowed(t *testing.T) {
	rules := []types.EnrichedRule{
		{Data: types.Rule{Type: types.Ptr("Game")}, SourceFile: "/a/t.rules"},
		{Data: types.Rule{Type: types.Ptr("Game")}, SourceFile: "/b/t.rules"},
		rule("x", "/a/x.rules"),
	}
	ResolveShadowing(rules)
	assert.Equal(t, []bool{false, false, false}, shadowFlags(rules))
}

func TestResolveShadowing_ResetsStaleFlags(t *testing.T) {
	rules := []types.EnrichedRule{rule("solo", "/a/x.rules")}
	rules[0].Shadowed = true
	ResolveShadowing(rules)
	assert.False(t, rules[0].Shadowed)
}

func TestActiveRule(t *testing.T) {
	rules := []types.EnrichedRule{rule("game", "/a/x.rules"), rule("Game", "/b/x.rules")}
	ResolveShadowing(rules)

	got, ok := ActiveRule(rules, "GAME")
	require.True(t, ok)
	assert.Equal(t, "/b/x.rules", got.SourceFile)

	_, ok = ActiveRule(rules, "missing")
	assert.False(t, ok)
}

func TestSortRules(t *testing.T) {
	rules := []types.EnrichedRule{
		rule("valid", "/x/b_cat/f.rules"),
		rule("b_rule", "/x/a_cat/f.rules"),
		rule("also_valid", "/x/b_cat/f.rules"),
		rule("A_rule", "/x/A_CAT/g.rules"),
		{Data: types.Rule{Type: types.Ptr("Game")}, SourceFile: "/x/b_cat/t.rules"},
	}
	SortRules(rules)

	want := []string{"A_rule", "b_rule", "<none>", "also_valid", "valid"}
	if diff := cmp.Diff(want, names(rules)); diff != "" {
		t.Errorf("sort mismatch (-want +got):\n%s", diff)
	}
}

func TestFilter(t *testing.T) {
	rules := []types.EnrichedRule{
		{Data: types.Rule{Name: types.Ptr("firefox"), Type: types.Ptr("Doc-View")}},
		{Data: types.Rule{Name: types.Ptr("sshd"), Cgroup: types.Ptr("system.slice")}},
		{Data: types.Rule{Name: types.Ptr("updatedb"), Type: types.Ptr("BG_CPUIO"), Nice: types.Ptr(19)}},
		{Data: types.Rule{Name: types.Ptr("pulse"), Sched: types.Ptr("RR"), RTPrio: types.Ptr(42)}, ContextComment: types.Ptr("# Audio daemons")},
		{Data: types.Rule{Name: types.Ptr("kswapd"), OOMScoreAdj: types.Ptr(-1000), IOClass: types.Ptr("idle")}},
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"system", []string{"sshd"}},
		{"bg", []string{"updatedb"}},
		{"AUDIO", []string{"pulse"}},
		{"42", []string{"pulse"}},
		{"19", []string{"updatedb"}},
		{"-1000", []string{"kswapd"}},
		{"IDLE", []string{"kswapd"}},
		{"rr", []string{"pulse"}},
		{"zzz", []string{}},
		{"", []string{"firefox", "sshd", "updatedb", "pulse", "kswapd"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := Filter(rules, tt.query)
			if diff := cmp.Diff(tt.want, names(got)); diff != "" {
				t.Errorf("filter %q mismatch (-want +got):\n%s", tt.query, diff)
			}
		})
	}
}

func TestService_Search(t *testing.T) {
	dir := t.TempDir()
	writeRules(t, filepath.Join(dir, "b_cat", "f.rules"), "{\"name\":\"valid\"}\n{\"name\":\"also_valid\"}")
	writeRules(t, filepath.Join(dir, "a_cat", "f.rules"), "{\"name\":\"b_rule\"}\n{\"name\":\"a_rule\",\"cgroup\":\"system.slice\"}")
	writeRules(t, filepath.Join(dir, "z_user", "f.rules"), `{"name":"VALID","nice":3}`)

	svc := NewService(NewRepository([]string{dir}))

	all, err := svc.Search("")
	require.NoError(t, err)
	want := []string{"a_rule", "b_rule", "also_valid", "valid", "VALID"}
	if diff := cmp.Diff(want, names(all)); diff != "" {
		t.Errorf("search mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []bool{false, false, false, true, false}, shadowFlags(all))

	hits, err := svc.Search("system")
	require.NoError(t, err)
	assert.Equal(t, []string{"a_rule"}, names(hits))

	again, err := svc.All()
	require.NoError(t, err)
	if diff := cmp.Diff(all, again); diff != "" {
		t.Errorf("repeated query differs (-first +second):\n%s", diff)
	}
}

func TestService_Variants(t *testing.T) {
	loader := &staticLoader{rules: []types.EnrichedRule{
		rule("game", "/a/x.rules"),
		rule("other", "/a/x.rules"),
		rule("Game", "/b/x.rules"),
	}}
	svc := NewService(loader)

	got, err := svc.Variants("GAME")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []bool{true, false}, shadowFlags(got))
	assert.Equal(t, 1, loader.calls)
}

func TestService_ReloadsEveryQuery(t *testing.T) {
	loader := &staticLoader{rules: []types.EnrichedRule{rule("a", "/a/x.rules")}}
	svc := NewService(loader)

	_, err := svc.Search("a")
	require.NoError(t, err)
	_, err = svc.Search("a")
	require.NoError(t, err)
	assert.Equal(t, 2, loader.calls)
}

func TestService_LoaderError(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(&staticLoader{err: boom})

	_, err := svc.Search("")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}
