package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ruleomatic/internal/config"
	"ruleomatic/internal/logging"
)

// testEnv lays out two rule directories and a fake procfs with one "game"
// process, writes a config pointing at them and runs setup.
type testEnv struct {
	base1, base2 string
	procRoot     string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	root := t.TempDir()
	env := testEnv{
		base1:    filepath.Join(root, "etc"),
		base2:    filepath.Join(root, "local"),
		procRoot: filepath.Join(root, "proc"),
	}

	write := func(path, content string) {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	write(filepath.Join(env.base1, "00-default", "games.rules"),
		`{"name": "game", "type": "Game", "nice": -5}`+"\n")
	write(filepath.Join(env.base2, "99-local", "mine.rules"),
		"# Mine\n"+`{"name": "game", "oom_score_adj": 100}`+"\n\n"+`{"name": "other"}`+"\n")
	write(filepath.Join(env.procRoot, "4242", "comm"), "game\n")
	write(filepath.Join(env.procRoot, "4242", "oom_score_adj"), "100\n")

	cfgFile := filepath.Join(root, "config.yaml")
	c := config.DefaultConfig()
	c.RulePaths = []string{env.base1, env.base2}
	require.NoError(t, c.Save(cfgFile))

	t.Setenv("RULEOMATIC_CONFIG", "")
	t.Setenv("RULEOMATIC_RULE_PATHS", "")
	t.Setenv("RULEOMATIC_LOG_LEVEL", "")
	t.Setenv("RULEOMATIC_PROC_ROOT", env.procRoot)

	resetFlags()
	t.Cleanup(resetFlags)
	configPath = cfgFile

	require.NoError(t, setup(false))
	logging.Set(zap.NewNop())
	return env
}

func resetFlags() {
	verbose = false
	configPath = ""
	searchJSON = false
	searchTextfile = ""
	inspectPlain = false
}

func run(t *testing.T, fn func(*cobra.Command, []string) error, args ...string) (string, error) {
	t.Helper()
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	err := fn(cmd, args)
	return buf.String(), err
}

func TestRunSearch(t *testing.T) {
	newTestEnv(t)

	out, err := run(t, runSearch, "game")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "Found 2 rules.\n\n"), out)
	assert.Contains(t, out, "[00-default] Name: game [ACTIVE] (PID: 4242) (Shadowed) | Type: Game | Nice: -5")
	assert.Contains(t, out, "[99-local] Name: game [ACTIVE] (PID: 4242) | Out of memory killer score: 100")
	assert.Contains(t, out, "OOM ok")
	assert.Contains(t, out, "  Info:\n    # Mine\n")
	assert.NotContains(t, out, "other")
}

func TestRunSearch_AllRules(t *testing.T) {
	newTestEnv(t)

	out, err := run(t, runSearch)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Found 3 rules."), out)
	assert.Contains(t, out, "[99-local] Name: other\n")
}

func TestRunSearch_NoMatch(t *testing.T) {
	newTestEnv(t)

	out, err := run(t, runSearch, "zzz")
	require.NoError(t, err)
	assert.Equal(t, "No rules found.\n", out)
}

func TestRunSearch_JSON(t *testing.T) {
	newTestEnv(t)
	searchJSON = true

	out, err := run(t, runSearch, "game")
	require.NoError(t, err)

	var results []struct {
		Rule struct {
			SourceFile string `json:"source_file"`
			Shadowed   bool   `json:"shadowed"`
		} `json:"rule"`
		Process *struct {
			PID int `json:"pid"`
		} `json:"process"`
		Checks []struct {
			Attribute string `json:"attribute"`
			Verdict   string `json:"verdict"`
			Want      string `json:"want"`
			Have      string `json:"have"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)

	assert.True(t, results[0].Rule.Shadowed)
	assert.False(t, results[1].Rule.Shadowed)
	require.NotNil(t, results[1].Process)
	assert.Equal(t, 4242, results[1].Process.PID)

	var oom []string
	for _, c := range results[1].Checks {
		if c.Attribute == "OOM" {
			oom = append(oom, c.Verdict, c.Want, c.Have)
		}
	}
	assert.Equal(t, []string{"ok", "100", "100"}, oom)
}

func TestRunSearch_Textfile(t *testing.T) {
	newTestEnv(t)
	searchTextfile = filepath.Join(t.TempDir(), "ruleomatic.prom")

	_, err := run(t, runSearch, "game")
	require.NoError(t, err)

	data, err := os.ReadFile(searchTextfile)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "ruleomatic_rules_loaded 3\n")
	assert.Contains(t, text, "ruleomatic_rules_shadowed 1\n")
	assert.Contains(t, text, "ruleomatic_rules_active 2\n")
	assert.Contains(t, text, "ruleomatic_processes_scanned 1\n")
	assert.Contains(t, text, `ruleomatic_verdicts{attribute="OOM",verdict="ok"} 1`)
	assert.Contains(t, text, `ruleomatic_verdicts{attribute="OOM",verdict="info"} 1`)
}

func TestRunSearch_MissingProcRoot(t *testing.T) {
	newTestEnv(t)
	cfg.ProcRoot = filepath.Join(t.TempDir(), "gone")

	out, err := run(t, runSearch, "game")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 2 rules.")
	assert.NotContains(t, out, "ACTIVE")
}

func TestRunInspect(t *testing.T) {
	newTestEnv(t)
	inspectPlain = true

	out, err := run(t, runInspect, "GAME")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "# GAME\n"), out)
	assert.Contains(t, out, "### 00-default (shadowed)")
	assert.Contains(t, out, "### 99-local (active)")
	assert.Contains(t, out, "> Mine\n")
	assert.Contains(t, out, "### PID 4242 (game)")
	assert.Contains(t, out, "| OOM | ok | 100 | 100 |")
}

func TestRunInspect_NonTerminalIsPlain(t *testing.T) {
	newTestEnv(t)

	out, err := run(t, runInspect, "other")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# other\n"), out)
	assert.True(t, strings.HasSuffix(out, "Not running.\n"), out)
}

func TestRunInspect_Unknown(t *testing.T) {
	newTestEnv(t)

	out, err := run(t, runInspect, "nope")
	require.NoError(t, err)
	assert.Contains(t, out, "No rule with this name is loaded.")
}

func TestConfigCommands(t *testing.T) {
	env := newTestEnv(t)
	extra := t.TempDir()

	out, err := run(t, runConfigList)
	require.NoError(t, err)
	assert.Contains(t, out, "Current Configuration:\n")
	assert.Contains(t, out, "Rule Paths:\n  - "+env.base1+"\n  - "+env.base2+"\n")

	out, err = run(t, runConfigAdd, extra)
	require.NoError(t, err)
	assert.Equal(t, "Added rule path: "+extra+"\n", out)

	stored, err := config.ReadFile(configFile)
	require.NoError(t, err)
	assert.Equal(t, []string{env.base1, env.base2, extra}, stored.RulePaths)

	_, err = run(t, runConfigAdd, extra)
	assert.ErrorIs(t, err, config.ErrPathExists)

	out, err = run(t, runConfigRemove, env.base1)
	require.NoError(t, err)
	assert.Equal(t, "Removed rule path: "+env.base1+"\n", out)

	stored, err = config.ReadFile(configFile)
	require.NoError(t, err)
	assert.Equal(t, []string{env.base2, extra}, stored.RulePaths)

	_, err = run(t, runConfigRemove, env.base1)
	assert.ErrorIs(t, err, config.ErrPathNotFound)
}

func TestConfigAdd_MissingDirectoryWarns(t *testing.T) {
	newTestEnv(t)
	missing := filepath.Join(t.TempDir(), "missing")

	out, err := run(t, runConfigAdd, missing)
	require.NoError(t, err)
	assert.Contains(t, out, "Warning: "+missing+" is not accessible")
}

func TestConfigAdd_DoesNotPersistOverrides(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("RULEOMATIC_RULE_PATHS", "/from/env")
	resetFlags()
	configPath = configFile
	require.NoError(t, setup(false))
	logging.Set(zap.NewNop())
	assert.Equal(t, []string{"/from/env"}, cfg.RulePaths)

	extra := t.TempDir()
	_, err := run(t, runConfigAdd, extra)
	require.NoError(t, err)

	stored, err := config.ReadFile(configFile)
	require.NoError(t, err)
	assert.Equal(t, []string{env.base1, env.base2, extra}, stored.RulePaths)
}

func TestConfigPath(t *testing.T) {
	newTestEnv(t)

	out, err := run(t, configPathCmd.RunE)
	require.NoError(t, err)
	assert.Equal(t, configFile+"\n", out)
}

func TestSetup_MalformedConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rule_paths: [unclosed\n"), 0644))
	t.Setenv("RULEOMATIC_RULE_PATHS", "")

	resetFlags()
	t.Cleanup(resetFlags)
	configPath = path

	err := setup(false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestSetup_CreatesDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RULEOMATIC_CONFIG", "")
	t.Setenv("RULEOMATIC_RULE_PATHS", "")
	t.Setenv("RULEOMATIC_LOG_LEVEL", "")
	t.Setenv("RULEOMATIC_PROC_ROOT", "")
	t.Setenv("XDG_CONFIG_HOME", dir)

	resetFlags()
	t.Cleanup(resetFlags)
	require.NoError(t, setup(true))
	logging.Set(zap.NewNop())

	assert.Equal(t, filepath.Join(dir, config.AppDirName, config.FileName), configFile)
	assert.FileExists(t, configFile)
	assert.Equal(t, config.DefaultRulePaths(), cfg.RulePaths)
}
