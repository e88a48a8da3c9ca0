package grammar

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "manifest.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadManifest_Valid(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
version = 1
allowed_abi_versions = [14, 15]

[[artifacts]]
language = "Tardi"
abi_version = 15
so_path = "tardi/tardi.so"
so_sha256 = "`+strings.Repeat("a", 64)+`"
source = "https://github.com/erochest/tree-sitter-tardi"
`)

	manifest, err := LoadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(manifest.Artifacts) != 1 {
		t.Fatalf("expected 1 artifact, got %d", len(manifest.Artifacts))
	}
	// Language names are normalized to lower case.
	if manifest.Artifacts[0].Language != "tardi" {
		t.Errorf("expected normalized language tardi, got %q", manifest.Artifacts[0].Language)
	}
}

func TestLoadManifest_DuplicateLanguage(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
version = 1
allowed_abi_versions = [15]

[[artifacts]]
language = "tardi"
abi_version = 15
so_path = "tardi/tardi.so"
so_sha256 = "aa"

[[artifacts]]
language = "tardi"
abi_version = 15
so_path = "tardi/other.so"
so_sha256 = "bb"
`)

	if _, err := LoadManifest(path); err == nil {
		t.Fatal("expected duplicate language error")
	}
}

func TestLoadManifest_NodeTypesMustPair(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
version = 1
allowed_abi_versions = [15]

[[artifacts]]
language = "tardi"
abi_version = 15
so_path = "tardi/tardi.so"
so_sha256 = "aa"
node_types_path = "tardi/node-types.json"
`)

	if _, err := LoadManifest(path); err == nil {
		t.Fatal("expected error when node_types_path lacks its checksum")
	}
}

func TestLoadManifest_RejectsMissingVersion(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
allowed_abi_versions = [15]

[[artifacts]]
language = "tardi"
abi_version = 15
so_path = "tardi/tardi.so"
so_sha256 = "aa"
`)

	if _, err := LoadManifest(path); err == nil {
		t.Fatal("expected error for missing manifest version")
	}
}
