package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"meshpm/internal/logging"
)

var dockerCommandContext = exec.CommandContext

// DockerDriver runs services as containers through the docker CLI.
// Spec.Command is interpreted as an image reference, optionally followed by
// a command to run inside the container.
type DockerDriver struct {
	logger *slog.Logger
}

// NewDocker constructs the docker driver.
func NewDocker(logger *slog.Logger) *DockerDriver {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &DockerDriver{logger: logger}
}

func (d *DockerDriver) Name() string { return NameDocker }

// Start runs `docker run --detach` with the container named after the
// service. The service port is published 1:1 and exported as PORT inside
// the container.
func (d *DockerDriver) Start(ctx context.Context, spec Spec) (Instance, error) {
	parts := strings.Fields(spec.Command)
	if len(parts) == 0 {
		return nil, errors.New("image reference required")
	}

	container := containerName(spec.Name)
	args := []string{"run", "--detach", "--name", container}
	if spec.Port > 0 {
		args = append(args,
			"--publish", fmt.Sprintf("%d:%d", spec.Port, spec.Port),
			"--env", fmt.Sprintf("PORT=%d", spec.Port))
	}
	for _, env := range spec.Env {
		args = append(args, "--env", env)
	}
	if spec.Dir != "" {
		args = append(args, "--workdir", spec.Dir)
	}
	args = append(args, parts...)

	out, err := dockerCommandContext(ctx, "docker", args...).Output()
	if err != nil {
		return nil, dockerError("run", err)
	}
	id := strings.TrimSpace(string(out))
	if id == "" {
		return nil, errors.New("docker run returned no container id")
	}

	inst := &dockerInstance{
		id:        id,
		container: container,
		done:      make(chan struct{}),
		logger:    logging.WithService(d.logger, spec.ServiceID, spec.Name),
	}
	go inst.wait()

	inst.logger.Info("container started",
		logging.String("container", container),
		logging.String("id", shortContainerID(id)),
		logging.Int("port", spec.Port))
	return inst, nil
}

type dockerInstance struct {
	id        string
	container string
	done      chan struct{}
	logger    *slog.Logger
}

func (i *dockerInstance) Handle() string { return i.id }

func (i *dockerInstance) Done() <-chan struct{} { return i.done }

// wait blocks until the container exits. `docker wait` failing also counts
// as exit; with the engine gone the container cannot be supervised.
func (i *dockerInstance) wait() {
	if err := dockerCommandContext(context.Background(), "docker", "wait", i.id).Run(); err != nil {
		i.logger.Warn("container wait failed", logging.Error(err))
	}
	close(i.done)
}

// Stop halts the container and removes it. Docker applies its own SIGTERM
// grace period before killing.
func (i *dockerInstance) Stop(ctx context.Context) error {
	if err := dockerCommandContext(ctx, "docker", "stop", i.id).Run(); err != nil {
		return dockerError("stop", err)
	}
	if err := dockerCommandContext(ctx, "docker", "rm", i.id).Run(); err != nil {
		return dockerError("rm", err)
	}
	i.logger.Info("container stopped", logging.String("container", i.container))
	return nil
}

func containerName(serviceName string) string {
	return "meshpm-" + serviceName
}

func shortContainerID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// dockerError surfaces the CLI's stderr when available.
func dockerError(action string, err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if detail := strings.TrimSpace(string(exitErr.Stderr)); detail != "" {
			return fmt.Errorf("docker %s: %w: %s", action, err, detail)
		}
	}
	return fmt.Errorf("docker %s: %w", action, err)
}

var (
	_ Driver   = (*DockerDriver)(nil)
	_ Instance = (*dockerInstance)(nil)
)
