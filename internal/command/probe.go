package command

import "os/exec"

// Capability reports whether an external tool can be found on PATH.
type Capability struct {
	Tool      string `json:"tool"`
	Available bool   `json:"available"`
	Path      string `json:"path,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Tools lists the external programs hal may invoke, by role.
var Tools = map[string][]string{
	"git":    {"git"},
	"freeze": {"uv"},
	"python": {"python3", "python"},
	"dask":   {"dask"},
}

func ProbeTools() map[string]Capability {
	return ProbeToolsWithLookPath(exec.LookPath)
}

func ProbeToolsWithLookPath(lookPath func(file string) (string, error)) map[string]Capability {
	capabilities := make(map[string]Capability, len(Tools))
	for role, candidates := range Tools {
		capability := Capability{}
		if len(candidates) > 0 {
			capability.Tool = candidates[0]
		}
		for _, candidate := range candidates {
			if path, err := lookPath(candidate); err == nil {
				capability.Available = true
				capability.Tool = candidate
				capability.Path = path
				break
			}
		}
		if !capability.Available {
			capability.Reason = "not_found"
		}
		capabilities[role] = capability
	}
	return capabilities
}
