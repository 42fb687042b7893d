package exec

import (
	"context"
	"errors"

	"codesync/internal/models"
)

// ErrUnsupportedLanguage is returned for languages outside the editor's list.
var ErrUnsupportedLanguage = errors.New("unsupported language")

type Runner struct{}

func NewRunner() *Runner { return &Runner{} }

// RunOutput separates compile diagnostics from run output so the relay can
// surface stdout, stderr, or compile_output in that priority order.
type RunOutput struct {
	Stdout        string
	Stderr        string
	CompileOutput string
	TimedOut      bool
}

type langSpec struct {
	image    string
	fileName string
	cmds     [][]string
}

// RunOnce executes one snippet to completion and maps step results onto the
// relay contract: a failing non-final step is a compile failure, the final
// step produces stdout/stderr.
func (r *Runner) RunOnce(ctx context.Context, lang models.Language, code string, limits SandboxLimits) (RunOutput, error) {
	spec, err := r.langSpec(lang)
	if err != nil {
		return RunOutput{}, err
	}

	sbx, err := NewSandbox(spec.image, limits)
	if err != nil {
		return RunOutput{}, err
	}

	steps, timedOut, err := sbx.Run(ctx, spec.fileName, []byte(code), spec.cmds)
	if err != nil {
		return RunOutput{}, err
	}
	return mapRunOutput(steps, len(spec.cmds), timedOut), nil
}

// mapRunOutput folds the step results into the relay contract. A failing
// non-final step means compilation diagnostics and no run happened; the
// final step contributes stdout and stderr.
func mapRunOutput(steps []StepResult, totalCmds int, timedOut bool) RunOutput {
	out := RunOutput{TimedOut: timedOut}
	if len(steps) == 0 {
		return out
	}
	last := steps[len(steps)-1]
	if last.Exit != 0 && len(steps) < totalCmds {
		out.CompileOutput = last.Stderr
		if out.CompileOutput == "" {
			out.CompileOutput = last.Stdout
		}
		return out
	}
	out.Stdout = last.Stdout
	out.Stderr = last.Stderr
	return out
}

func (r *Runner) langSpec(lang models.Language) (langSpec, error) {
	switch lang {
	case models.LangJavaScript:
		return langSpec{
			image:    "node:20-slim",
			fileName: "main.js",
			cmds:     [][]string{{"node", "main.js"}},
		}, nil
	case models.LangTypeScript:
		return langSpec{
			image:    "denoland/deno:alpine",
			fileName: "main.ts",
			cmds:     [][]string{{"deno", "run", "--quiet", "main.ts"}},
		}, nil
	case models.LangPython:
		return langSpec{
			image:    "python:3.11-slim",
			fileName: "main.py",
			cmds:     [][]string{{"python3", "main.py"}},
		}, nil
	case models.LangJava:
		return langSpec{
			image:    "eclipse-temurin:17-jdk",
			fileName: "Main.java",
			cmds:     [][]string{{"javac", "Main.java"}, {"java", "Main"}},
		}, nil
	case models.LangGolang:
		return langSpec{
			image:    "golang:1.22",
			fileName: "main.go",
			cmds:     [][]string{{"go", "run", "main.go"}},
		}, nil
	case models.LangCPP:
		return langSpec{
			image:    "gcc:13",
			fileName: "main.cpp",
			cmds:     [][]string{{"g++", "-O2", "-std=c++17", "main.cpp", "-o", "main"}, {"./main"}},
		}, nil
	default:
		return langSpec{}, ErrUnsupportedLanguage
	}
}
