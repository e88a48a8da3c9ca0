package grammar

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Manifest pins the dynamic grammar artifacts the verifier is allowed to
// load: where each shared object lives, its checksum, and the tree-sitter
// ABI version it was generated for.
type Manifest struct {
	Version            int        `toml:"version"`
	AllowedABIVersions []int      `toml:"allowed_abi_versions"`
	Artifacts          []Artifact `toml:"artifacts"`
}

type Artifact struct {
	Language         string `toml:"language"`
	ABIVersion       int    `toml:"abi_version"`
	SharedObjectPath string `toml:"so_path"`
	SharedObjectHash string `toml:"so_sha256"`
	NodeTypesPath    string `toml:"node_types_path"`
	NodeTypesHash    string `toml:"node_types_sha256"`
	Source           string `toml:"source"`
	ApprovedDate     string `toml:"approved_date"`
}

func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}

	var manifest Manifest
	if _, err := toml.Decode(string(data), &manifest); err != nil {
		return Manifest{}, err
	}

	if manifest.Version <= 0 {
		return Manifest{}, fmt.Errorf("manifest version must be > 0")
	}
	if len(manifest.AllowedABIVersions) == 0 {
		return Manifest{}, fmt.Errorf("manifest must define allowed_abi_versions")
	}
	if len(manifest.Artifacts) == 0 {
		return Manifest{}, fmt.Errorf("manifest must define at least one artifact")
	}

	seen := make(map[string]bool, len(manifest.Artifacts))
	for i, artifact := range manifest.Artifacts {
		ref := fmt.Sprintf("artifacts[%d]", i)
		artifact.Language = strings.TrimSpace(strings.ToLower(artifact.Language))
		artifact.SharedObjectPath = filepath.Clean(strings.TrimSpace(artifact.SharedObjectPath))
		artifact.SharedObjectHash = strings.TrimSpace(strings.ToLower(artifact.SharedObjectHash))
		artifact.NodeTypesPath = strings.TrimSpace(artifact.NodeTypesPath)
		if artifact.NodeTypesPath != "" {
			artifact.NodeTypesPath = filepath.Clean(artifact.NodeTypesPath)
		}
		artifact.NodeTypesHash = strings.TrimSpace(strings.ToLower(artifact.NodeTypesHash))
		artifact.Source = strings.TrimSpace(artifact.Source)
		artifact.ApprovedDate = strings.TrimSpace(artifact.ApprovedDate)

		if artifact.Language == "" {
			return Manifest{}, fmt.Errorf("%s.language must not be empty", ref)
		}
		if seen[artifact.Language] {
			return Manifest{}, fmt.Errorf("duplicate language entry %q in manifest", artifact.Language)
		}
		seen[artifact.Language] = true
		if artifact.ABIVersion <= 0 {
			return Manifest{}, fmt.Errorf("%s.abi_version must be > 0", ref)
		}
		if artifact.SharedObjectPath == "" || artifact.SharedObjectPath == "." || artifact.SharedObjectHash == "" {
			return Manifest{}, fmt.Errorf("%s.so_path and so_sha256 must not be empty", ref)
		}
		if (artifact.NodeTypesPath == "") != (artifact.NodeTypesHash == "") {
			return Manifest{}, fmt.Errorf("%s.node_types_path and node_types_sha256 must be set together", ref)
		}
		manifest.Artifacts[i] = artifact
	}

	return manifest, nil
}
