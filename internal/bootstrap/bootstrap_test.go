package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRunner answers Check commands from a table and records Run
// commands.
type scriptedRunner struct {
	satisfied map[string]bool // check command -> already satisfied
	failOn    string          // substring of a run command that fails
	ran       []string
}

func (r *scriptedRunner) Run(_ context.Context, cmd string) error {
	if ok, known := r.satisfied[cmd]; known {
		if ok {
			return nil
		}
		return fmt.Errorf("exit status 1")
	}
	r.ran = append(r.ran, cmd)
	if r.failOn != "" && strings.Contains(cmd, r.failOn) {
		return fmt.Errorf("exit status 1")
	}
	return nil
}

func TestInstallerSkipsSatisfiedSteps(t *testing.T) {
	ins := &Installer{
		Name: "demo",
		Steps: []Step{
			{Name: "a", Check: "check-a", Run: "run-a"},
			{Name: "b", Check: "check-b", Run: "run-b"},
		},
	}
	runner := &scriptedRunner{satisfied: map[string]bool{
		"check-a": true,
		"check-b": false,
	}}

	require.NoError(t, ins.Run(context.Background(), runner, nil))
	assert.Equal(t, []string{"run-b"}, runner.ran)
}

func TestInstallerFailsFast(t *testing.T) {
	ins := &Installer{
		Name: "demo",
		Steps: []Step{
			{Name: "a", Run: "run-a"},
			{Name: "b", Run: "run-b"},
			{Name: "c", Run: "run-c"},
		},
	}
	runner := &scriptedRunner{failOn: "run-b"}

	err := ins.Run(context.Background(), runner, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `step "b" failed`)
	assert.Equal(t, []string{"run-a", "run-b"}, runner.ran, "step c must not run after b failed")
}

func TestInstallerStepWithoutCheckAlwaysRuns(t *testing.T) {
	ins := &Installer{Name: "demo", Steps: []Step{{Name: "always", Run: "run-always"}}}
	runner := &scriptedRunner{}
	require.NoError(t, ins.Run(context.Background(), runner, nil))
	require.NoError(t, ins.Run(context.Background(), runner, nil))
	assert.Equal(t, []string{"run-always", "run-always"}, runner.ran)
}

func TestByName(t *testing.T) {
	for _, name := range []string{"python", "node", "rust"} {
		ins, err := ByName(name)
		require.NoError(t, err)
		assert.Equal(t, name, ins.Name)
		assert.NotEmpty(t, ins.Steps)
	}
	_, err := ByName("cobol")
	assert.Error(t, err)
}

func TestAllOrder(t *testing.T) {
	all := All()
	require.Len(t, all, 3)
	assert.Equal(t, "python", all[0].Name)
	assert.Equal(t, "node", all[1].Name)
	assert.Equal(t, "rust", all[2].Name)
}
