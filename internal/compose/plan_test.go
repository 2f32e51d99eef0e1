package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommonArgs(t *testing.T) {
	args := CommonArgs(
		"web",
		[]string{"dev", "qa"},
		[]string{".env", ".env.dev"},
		[]string{"up", "-d", "--build"},
	)

	assert.Equal(t, []string{
		"--project-name", "web",
		"--profile", "dev",
		"--profile", "qa",
		"--env-file", ".env",
		"--env-file", ".env.dev",
		"up", "-d", "--build",
	}, args)
}

func TestCommonArgs_NoProject(t *testing.T) {
	args := CommonArgs("", nil, []string{".env"}, []string{"ps"})
	assert.Equal(t, []string{"--env-file", ".env", "ps"}, args)
}

func TestCommonArgs_Empty(t *testing.T) {
	assert.Empty(t, CommonArgs("", nil, nil, nil))
}

// TestCommonArgs_PassthroughVerbatim checks that passthrough arguments are
// forwarded untouched, including flag-like and empty entries.
func TestCommonArgs_PassthroughVerbatim(t *testing.T) {
	passthrough := []string{"run", "--rm", "web", "sh", "-c", "echo $HOME", ""}
	args := CommonArgs("", nil, nil, passthrough)
	assert.Equal(t, passthrough, args)
}

func TestStepArgs(t *testing.T) {
	plan := &Plan{
		Binary: Candidate{Raw: "docker compose", Argv: []string{"docker", "compose"}},
		Common: []string{"--project-name", "web", "--env-file", ".env"},
	}

	passthrough := Step{Name: "delegate"}
	assert.Equal(t,
		[]string{"compose", "--project-name", "web", "--env-file", ".env"},
		plan.StepArgs(passthrough))

	rm := Step{Name: "rm", Extra: []string{"rm", "--force", "--stop"}}
	assert.Equal(t,
		[]string{"compose", "--project-name", "web", "--env-file", ".env", "rm", "--force", "--stop"},
		plan.StepArgs(rm))
}

// TestStepArgs_DoesNotShareBacking checks that successive calls cannot
// corrupt each other or the plan's own slices.
func TestStepArgs_DoesNotShareBacking(t *testing.T) {
	plan := &Plan{
		Binary: Candidate{Raw: "docker-compose", Argv: []string{"docker-compose"}},
		Common: []string{"--env-file", ".env"},
	}

	first := plan.StepArgs(Step{Name: "rm", Extra: []string{"rm"}})
	second := plan.StepArgs(Step{Name: "down", Extra: []string{"down"}})

	assert.Equal(t, []string{"--env-file", ".env", "rm"}, first)
	assert.Equal(t, []string{"--env-file", ".env", "down"}, second)
	assert.Equal(t, []string{"--env-file", ".env"}, plan.Common)
}

func TestCleanSteps(t *testing.T) {
	steps := CleanSteps(false)
	require.Len(t, steps, 2)

	assert.Equal(t, "rm", steps[0].Name)
	assert.Equal(t, []string{"rm", "--force", "--stop"}, steps[0].Extra)

	assert.Equal(t, "down", steps[1].Name)
	assert.Equal(t, []string{"down", "--volumes"}, steps[1].Extra)
}

func TestCleanSteps_WithImages(t *testing.T) {
	steps := CleanSteps(true)
	require.Len(t, steps, 2)
	assert.Equal(t, []string{"down", "--volumes", "--rmi", "local"}, steps[1].Extra)
}

func TestPassthroughSteps(t *testing.T) {
	steps := PassthroughSteps()
	require.Len(t, steps, 1)
	assert.Empty(t, steps[0].Extra)
}

func TestRender(t *testing.T) {
	plan := &Plan{
		Binary: Candidate{Raw: "docker compose", Argv: []string{"docker", "compose"}},
		Common: []string{"--project-name", "my app"},
	}

	rendered := plan.Render(Step{Name: "delegate"})
	assert.Equal(t, "docker compose --project-name 'my app'", rendered)
}
