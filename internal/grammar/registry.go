package grammar

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Kind distinguishes grammars compiled into the binary from grammars loaded
// out of a shared object at runtime.
type Kind string

const (
	KindStatic  Kind = "static"
	KindDynamic Kind = "dynamic"
)

// Spec describes one named grammar known to the verifier.
type Spec struct {
	Name                string
	Kind                Kind
	SharedObject        string // path relative to the grammars directory, dynamic only
	Sample              string // tiny source snippet for probe parsing; empty skips the probe
	Enabled             bool
	RequireVerification bool
}

// Override adjusts a registry entry, or introduces a new dynamic grammar when
// the name is unknown and a shared object path is given.
type Override struct {
	Enabled      *bool
	SharedObject string
	Sample       string
}

func DefaultRegistry() map[string]Spec {
	return map[string]Spec{
		"css": {
			Name:    "css",
			Kind:    KindStatic,
			Sample:  "a { color: red; }",
			Enabled: true,
		},
		"go": {
			Name:    "go",
			Kind:    KindStatic,
			Sample:  "package main\n\nfunc main() {}\n",
			Enabled: true,
		},
		"html": {
			Name:    "html",
			Kind:    KindStatic,
			Sample:  "<html><body></body></html>",
			Enabled: true,
		},
		"java": {
			Name:    "java",
			Kind:    KindStatic,
			Sample:  "class Probe {}",
			Enabled: true,
		},
		"javascript": {
			Name:    "javascript",
			Kind:    KindStatic,
			Sample:  "const probe = 1;",
			Enabled: true,
		},
		"python": {
			Name:    "python",
			Kind:    KindStatic,
			Sample:  "def probe():\n    pass\n",
			Enabled: true,
		},
		"rust": {
			Name:    "rust",
			Kind:    KindStatic,
			Sample:  "fn probe() {}",
			Enabled: true,
		},
		"tsx": {
			Name:    "tsx",
			Kind:    KindStatic,
			Sample:  "const probe = <div/>;",
			Enabled: true,
		},
		"typescript": {
			Name:    "typescript",
			Kind:    KindStatic,
			Sample:  "const probe: number = 1;",
			Enabled: true,
		},
	}
}

func BuildRegistry(overrides map[string]Override) (map[string]Spec, error) {
	registry := CloneRegistry(DefaultRegistry())
	if overrides == nil {
		return registry, nil
	}

	for name, override := range overrides {
		id := strings.TrimSpace(strings.ToLower(name))
		if id == "" {
			return nil, fmt.Errorf("grammar override with empty name")
		}

		spec, ok := registry[id]
		if !ok {
			if strings.TrimSpace(override.SharedObject) == "" {
				return nil, fmt.Errorf("unknown grammar override %q (dynamic grammars need so_path)", name)
			}
			spec = Spec{
				Name:                id,
				Kind:                KindDynamic,
				Enabled:             true,
				RequireVerification: true,
			}
		}

		if override.Enabled != nil {
			spec.Enabled = *override.Enabled
		}
		if so := strings.TrimSpace(override.SharedObject); so != "" {
			if spec.Kind == KindStatic {
				return nil, fmt.Errorf("grammar %q is compiled in and cannot take so_path", id)
			}
			spec.SharedObject = filepath.Clean(so)
		}
		if sample := override.Sample; sample != "" {
			spec.Sample = sample
		}
		registry[id] = spec
	}

	if err := validateRegistry(registry); err != nil {
		return nil, err
	}
	return registry, nil
}

func CloneRegistry(in map[string]Spec) map[string]Spec {
	out := make(map[string]Spec, len(in))
	for id, spec := range in {
		out[id] = spec
	}
	return out
}

func validateRegistry(registry map[string]Spec) error {
	for _, id := range SortedNames(registry) {
		spec := registry[id]
		if spec.Kind == KindDynamic && spec.Enabled && spec.SharedObject == "" {
			return fmt.Errorf("dynamic grammar %q is enabled but has no so_path", id)
		}
	}
	return nil
}

func SortedNames(registry map[string]Spec) []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
