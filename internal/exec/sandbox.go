package exec

import (
	"archive/tar"
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

type SandboxLimits struct {
	WallTime time.Duration
	MemoryB  int64
	NanoCPUs int64
}

// StepResult captures the output of one command step (compile or run).
type StepResult struct {
	Stdout string
	Stderr string
	Exit   int
}

// Sandbox executes untrusted code inside a network-less container with a
// tmpfs workspace and hard resource limits.
type Sandbox struct {
	cli    *client.Client
	image  string
	limits SandboxLimits
}

func NewSandbox(image string, limits SandboxLimits) (*Sandbox, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}
	return &Sandbox{cli: cli, image: image, limits: limits}, nil
}

// Run copies the source file into a fresh container and executes the command
// steps in order, stopping at the first non-zero exit. The result slice
// includes the failing step.
func (s *Sandbox) Run(ctx context.Context, fileName string, code []byte, cmds [][]string) (steps []StepResult, timedOut bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.limits.WallTime)
	defer cancel()

	hostCfg := &container.HostConfig{
		NetworkMode:    "none",
		ReadonlyRootfs: true,
		Mounts: []mount.Mount{
			{Type: mount.TypeTmpfs, Target: "/tmp"},
			{Type: mount.TypeTmpfs, Target: "/workspace"},
		},
		Resources: container.Resources{
			Memory:   s.limits.MemoryB,
			NanoCPUs: s.limits.NanoCPUs,
		},
		SecurityOpt: []string{"no-new-privileges"},
	}

	conf := &container.Config{
		Image:      s.image,
		Cmd:        []string{"sh", "-c", "sleep infinity"},
		Tty:        false,
		WorkingDir: "/workspace",
	}

	create, err := s.cli.ContainerCreate(ctx, conf, hostCfg, nil, nil, "")
	if err != nil {
		return nil, false, err
	}
	cid := create.ID
	defer func() {
		_ = s.cli.ContainerRemove(context.Background(), cid, types.ContainerRemoveOptions{Force: true})
	}()

	if err := s.cli.ContainerStart(ctx, cid, types.ContainerStartOptions{}); err != nil {
		return nil, false, err
	}

	if err := s.copyFile(ctx, cid, "/workspace/"+fileName, code, 0600); err != nil {
		return nil, false, err
	}

	for _, cmd := range cmds {
		step, stepErr := s.execStep(ctx, cid, cmd)
		if stepErr != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return steps, true, nil
			}
			return steps, false, stepErr
		}
		steps = append(steps, step)
		if step.Exit != 0 {
			break
		}
	}
	if ctx.Err() == context.DeadlineExceeded {
		return steps, true, nil
	}
	return steps, false, nil
}

func (s *Sandbox) execStep(ctx context.Context, cid string, cmd []string) (StepResult, error) {
	execResp, err := s.cli.ContainerExecCreate(ctx, cid, types.ExecConfig{
		Cmd:          cmd,
		WorkingDir:   "/workspace",
		AttachStdout: true,
		AttachStderr: true,
		Tty:          false,
	})
	if err != nil {
		return StepResult{}, err
	}
	attach, err := s.cli.ContainerExecAttach(ctx, execResp.ID, types.ExecStartCheck{Tty: false})
	if err != nil {
		return StepResult{}, err
	}
	defer attach.Close()

	var stdout, stderr strings.Builder
	_, _ = stdcopy.StdCopy(&stdout, &stderr, attach.Reader)

	ir, err := s.cli.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return StepResult{}, err
	}
	return StepResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
		Exit:   ir.ExitCode,
	}, nil
}

func (s *Sandbox) copyFile(ctx context.Context, cid, absPath string, content []byte, mode int64) error {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := tw.WriteHeader(&tar.Header{
		Name: absPath[1:],
		Mode: mode,
		Size: int64(len(content)),
	}); err != nil {
		return err
	}
	if _, err := tw.Write(content); err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return s.cli.CopyToContainer(ctx, cid, "/", &buf, types.CopyToContainerOptions{})
}
