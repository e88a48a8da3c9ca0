package grammar

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVerifyArtifacts_DetectsChecksumMismatch(t *testing.T) {
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "tardi"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(base, "tardi", "tardi.so"), []byte("so"), 0o644); err != nil {
		t.Fatal(err)
	}

	manifest := Manifest{
		Version:            1,
		AllowedABIVersions: []int{14, 15},
		Artifacts: []Artifact{
			{
				Language:         "tardi",
				ABIVersion:       14,
				SharedObjectPath: "tardi/tardi.so",
				SharedObjectHash: strings.Repeat("0", 64),
			},
		},
	}

	issues, err := VerifyArtifacts(base, manifest)
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != 1 {
		t.Fatalf("expected 1 checksum mismatch issue, got %d", len(issues))
	}
	if issues[0].Reason != "checksum mismatch" {
		t.Errorf("unexpected reason %q", issues[0].Reason)
	}
}

func TestVerifyArtifacts_MatchingChecksumPasses(t *testing.T) {
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "tardi"), 0o755); err != nil {
		t.Fatal(err)
	}
	payload := []byte("compiled grammar bytes")
	if err := os.WriteFile(filepath.Join(base, "tardi", "tardi.so"), payload, 0o644); err != nil {
		t.Fatal(err)
	}

	manifest := Manifest{
		Version:            1,
		AllowedABIVersions: []int{15},
		Artifacts: []Artifact{
			{
				Language:         "tardi",
				ABIVersion:       15,
				SharedObjectPath: "tardi/tardi.so",
				SharedObjectHash: fmt.Sprintf("%x", sha256.Sum256(payload)),
			},
		},
	}

	issues, err := VerifyArtifacts(base, manifest)
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected no issues, got %#v", issues)
	}
}

func TestVerifyArtifacts_UnsupportedABIVersion(t *testing.T) {
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "tardi"), 0o755); err != nil {
		t.Fatal(err)
	}
	payload := []byte("so")
	if err := os.WriteFile(filepath.Join(base, "tardi", "tardi.so"), payload, 0o644); err != nil {
		t.Fatal(err)
	}

	manifest := Manifest{
		Version:            1,
		AllowedABIVersions: []int{14, 15},
		Artifacts: []Artifact{
			{
				Language:         "tardi",
				ABIVersion:       11,
				SharedObjectPath: "tardi/tardi.so",
				SharedObjectHash: fmt.Sprintf("%x", sha256.Sum256(payload)),
			},
		},
	}

	issues, err := VerifyArtifacts(base, manifest)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, issue := range issues {
		if strings.Contains(issue.Reason, "unsupported ABI version") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected unsupported ABI version issue, got %#v", issues)
	}
}

func TestVerifyRegistryArtifacts_MissingManifestEntry(t *testing.T) {
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "tardi"), 0o755); err != nil {
		t.Fatal(err)
	}
	payload := []byte("so")
	if err := os.WriteFile(filepath.Join(base, "tardi", "tardi.so"), payload, 0o644); err != nil {
		t.Fatal(err)
	}
	manifest := `
version = 1
allowed_abi_versions = [15]

[[artifacts]]
language = "tardi"
abi_version = 15
so_path = "tardi/tardi.so"
so_sha256 = "` + fmt.Sprintf("%x", sha256.Sum256(payload)) + `"
`
	if err := os.WriteFile(filepath.Join(base, "manifest.toml"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	registry := map[string]Spec{
		"tardi": {
			Name:                "tardi",
			Kind:                KindDynamic,
			SharedObject:        "tardi/tardi.so",
			Enabled:             true,
			RequireVerification: true,
		},
		"forth": {
			Name:                "forth",
			Kind:                KindDynamic,
			SharedObject:        "forth/forth.so",
			Enabled:             true,
			RequireVerification: true,
		},
	}

	issues, err := VerifyRegistryArtifacts(base, registry)
	if err != nil {
		t.Fatal(err)
	}

	foundMissing := false
	for _, issue := range issues {
		if issue.Grammar == "forth" && strings.Contains(issue.Reason, "missing") {
			foundMissing = true
			break
		}
	}
	if !foundMissing {
		t.Fatalf("expected missing manifest issue for forth, got %#v", issues)
	}
}

func TestVerifyRegistryArtifacts_IgnoresDisabledGrammars(t *testing.T) {
	base := t.TempDir()
	manifest := `
version = 1
allowed_abi_versions = [15]

[[artifacts]]
language = "tardi"
abi_version = 15
so_path = "tardi/tardi.so"
so_sha256 = "` + strings.Repeat("0", 64) + `"
`
	if err := os.WriteFile(filepath.Join(base, "manifest.toml"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	registry := map[string]Spec{
		"tardi": {
			Name:                "tardi",
			Kind:                KindDynamic,
			SharedObject:        "tardi/tardi.so",
			Enabled:             false,
			RequireVerification: true,
		},
	}

	issues, err := VerifyRegistryArtifacts(base, registry)
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != 0 {
		t.Fatalf("disabled grammars must not produce issues, got %#v", issues)
	}
}
