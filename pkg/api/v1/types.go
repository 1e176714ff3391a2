package v1

type State string

const (
	StateInstalled State = "installed"
	StatePresent   State = "present"
	StateRemoved   State = "removed"
	StateAbsent    State = "absent"
)

// Install reports whether the state asks for the package to be present.
func (s State) Install() bool {
	return s == StateInstalled || s == StatePresent
}

func (s State) Valid() bool {
	switch s {
	case StateInstalled, StatePresent, StateRemoved, StateAbsent:
		return true
	default:
		return false
	}
}

// DpkgArgs are the parameters of the dpkg module.
type DpkgArgs struct {
	URL     string `json:"url,omitempty"`
	Package string `json:"package,omitempty"`
	State   State  `json:"state,omitempty"`
	Purge   bool   `json:"purge,omitempty"`
	Force   bool   `json:"force,omitempty"`
	// CheckMode is Ansible's name for a dry run.
	CheckMode  bool   `json:"_ansible_check_mode,omitempty"`
	Timeout    string `json:"timeout,omitempty"`
	Comparator string `json:"comparator,omitempty"`
}

// Result is what a module reports back to Ansible on stdout.
type Result struct {
	Changed bool   `json:"changed"`
	Failed  bool   `json:"failed,omitempty"`
	Msg     string `json:"msg,omitempty"`
}
