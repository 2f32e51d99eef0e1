package compose

import (
	"slices"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Step is one delegate invocation within a plan: a short label for logging
// and the fixed arguments appended after the common argument vector.
type Step struct {
	Name  string
	Extra []string
}

// Plan is the resolved invocation plan for one logical command. It is built
// once, consumed by the orchestrator, and discarded.
type Plan struct {
	Binary Candidate
	Common []string
	Steps  []Step
	Dir    string
}

// CommonArgs builds the argument vector shared by every delegate step: the
// project-name flag when a project is set, one profile flag per active
// profile in order, one env-file flag per merged file in merge order, then
// the passthrough arguments verbatim. Passthrough arguments are never
// reordered or interpreted.
func CommonArgs(project string, profiles []string, files []string, passthrough []string) []string {
	args := make([]string, 0, 2+2*len(profiles)+2*len(files)+len(passthrough))

	if project != "" {
		args = append(args, "--project-name", project)
	}
	for _, profile := range profiles {
		args = append(args, "--profile", profile)
	}
	for _, file := range files {
		args = append(args, "--env-file", file)
	}

	return append(args, passthrough...)
}

// StepArgs returns the full argument vector for one step: the binary's own
// leading arguments, then the common vector, then the step's extras.
func (p *Plan) StepArgs(step Step) []string {
	args := slices.Clone(p.Binary.Argv[1:])
	args = append(args, p.Common...)
	return append(args, step.Extra...)
}

// Render returns a copy-pasteable shell rendering of one step for
// diagnostics, quoting arguments that need it.
func (p *Plan) Render(step Step) string {
	argv := append([]string{p.Binary.Argv[0]}, p.StepArgs(step)...)

	parts := make([]string, 0, len(argv))
	for _, arg := range argv {
		quoted, err := syntax.Quote(arg, syntax.LangBash)
		if err != nil {
			quoted = arg
		}
		parts = append(parts, quoted)
	}

	return strings.Join(parts, " ")
}

// PassthroughSteps returns the single delegate step of a simple command.
func PassthroughSteps() []Step {
	return []Step{{Name: "delegate"}}
}

// CleanSteps returns the delegate steps of the composite clean command: a
// forced remove of the project's containers, then a tear-down of its
// resources including volumes. removeImages additionally removes
// locally-built images during tear-down.
func CleanSteps(removeImages bool) []Step {
	down := []string{"down", "--volumes"}
	if removeImages {
		down = append(down, "--rmi", "local")
	}

	return []Step{
		{Name: "rm", Extra: []string{"rm", "--force", "--stop"}},
		{Name: "down", Extra: down},
	}
}
