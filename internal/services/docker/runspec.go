package docker

// Mount maps a host path into the container.
type Mount struct {
	Host     string
	Guest    string
	ReadOnly bool
}

// RunSpec describes a single `docker run` invocation.
type RunSpec struct {
	GPUs    bool
	User    string
	Mounts  []Mount
	Workdir string
	Env     []string
	Image   string
	Command []string
}

// Args assembles the argument list for the docker binary. Assembly is
// deterministic: flags appear in a fixed order, mounts and environment
// bindings keep their insertion order.
func (s RunSpec) Args() []string {
	args := []string{"run", "--rm"}
	if s.User != "" {
		args = append(args, "--user", s.User)
	}
	if s.GPUs {
		args = append(args, "--gpus", "all")
	}
	for _, m := range s.Mounts {
		mount := m.Host + ":" + m.Guest
		if m.ReadOnly {
			mount += ":ro"
		}
		args = append(args, "-v", mount)
	}
	if s.Workdir != "" {
		args = append(args, "--workdir", s.Workdir)
	}
	for _, env := range s.Env {
		args = append(args, "-e", env)
	}
	args = append(args, s.Image)
	args = append(args, s.Command...)
	return args
}
