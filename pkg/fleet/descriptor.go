package fleet

// ServiceDescriptor identifies one named, independently startable unit of the
// monitored fleet. Descriptors are declared at process start from static
// configuration and never mutated afterwards.
type ServiceDescriptor struct {
	// Name is the unique service identifier, matching the service manager unit name
	Name string `yaml:"name"`

	// Ports is an ordered set of listen ports; the first one is the primary
	// port used for connectivity checks
	Ports []int `yaml:"ports"`

	// AutoRemediate enables automatic restarts on unhealthy classification.
	// Proxy-tier services (nginx) set this to false and are never restarted
	// by the monitor.
	AutoRemediate bool `yaml:"auto_remediate"`

	// Host is the address the service listens on, defaults to localhost
	Host string `yaml:"host,omitempty"`
}

// PrimaryPort returns the port used for connectivity checks, 0 when none declared
func (d ServiceDescriptor) PrimaryPort() int {
	if len(d.Ports) == 0 {
		return 0
	}
	return d.Ports[0]
}
