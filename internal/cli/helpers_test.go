package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vault/internal/config"
	"github.com/roach88/vault/internal/keys"
	"github.com/roach88/vault/internal/testutil"
)

var testEpoch = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

// cliHarness runs vault commands against one database in a temp directory.
// Every run shares the same in-memory keyring and test clock.
type cliHarness struct {
	t       *testing.T
	dir     string
	secrets keys.SecretStore
	clock   *testutil.Clock
}

type cliResult struct {
	stdout string
	stderr string
	code   int
}

func newHarness(t *testing.T) *cliHarness {
	t.Helper()
	for _, env := range []string{config.EnvDBPath, config.EnvAutoDelete, config.EnvKeyringService, config.EnvLogLevel} {
		t.Setenv(env, "")
	}
	return &cliHarness{
		t:       t,
		dir:     t.TempDir(),
		secrets: keys.NewMemorySecretStore(),
		clock:   testutil.NewClock(testEpoch),
	}
}

func (h *cliHarness) dbPath() string {
	return filepath.Join(h.dir, "vault.db")
}

func (h *cliHarness) run(args ...string) cliResult {
	h.t.Helper()
	opts := &RootOptions{
		secrets: h.secrets,
		now:     h.clock.Now,
		logOut:  io.Discard,
	}
	cmd := newRootCommand(opts)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	base := []string{"--config", filepath.Join(h.dir, "vault.yaml"), "--db", h.dbPath()}
	code := execute(cmd, opts, append(base, args...))
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), code: code}
}

// mustRun runs a command that is expected to succeed.
func (h *cliHarness) mustRun(args ...string) string {
	h.t.Helper()
	res := h.run(args...)
	require.Equal(h.t, ExitSuccess, res.code, "args %v failed: %s%s", args, res.stdout, res.stderr)
	return res.stdout
}

// runJSON runs a command with --format json and decodes the data payload.
func (h *cliHarness) runJSON(data any, args ...string) {
	h.t.Helper()
	out := h.mustRun(append([]string{"--format", "json"}, args...)...)
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(h.t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(h.t, "ok", resp.Status)
	if data != nil {
		require.NoError(h.t, json.Unmarshal(resp.Data, data))
	}
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}
