package grammar

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Issue describes one artifact problem found during manifest verification.
type Issue struct {
	Grammar      string
	ArtifactKind string
	ArtifactPath string
	ExpectedHash string
	ActualHash   string
	Reason       string
}

// VerifyArtifacts checks every manifest artifact against the files on disk:
// checksum match and ABI version inside the manifest's allowed set.
func VerifyArtifacts(baseDir string, manifest Manifest) ([]Issue, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("baseDir must not be empty")
	}

	info, err := os.Stat(baseDir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("grammar base path is not a directory: %s", baseDir)
	}

	allowed := make(map[int]bool, len(manifest.AllowedABIVersions))
	for _, version := range manifest.AllowedABIVersions {
		allowed[version] = true
	}

	issues := make([]Issue, 0)
	for _, artifact := range manifest.Artifacts {
		if !allowed[artifact.ABIVersion] {
			issues = append(issues, Issue{
				Grammar: artifact.Language,
				Reason:  fmt.Sprintf("unsupported ABI version %d", artifact.ABIVersion),
			})
		}
		issues = append(issues, checkArtifactHash(baseDir, artifact.Language, "shared-object", artifact.SharedObjectPath, artifact.SharedObjectHash)...)
		if artifact.NodeTypesPath != "" {
			issues = append(issues, checkArtifactHash(baseDir, artifact.Language, "node-types", artifact.NodeTypesPath, artifact.NodeTypesHash)...)
		}
	}

	sortIssues(issues)
	return issues, nil
}

// VerifyRegistryArtifacts runs manifest verification scoped to a registry:
// issues for disabled grammars are dropped, and enabled dynamic grammars that
// require verification must appear in the manifest.
func VerifyRegistryArtifacts(baseDir string, registry map[string]Spec) ([]Issue, error) {
	manifestPath := filepath.Join(baseDir, "manifest.toml")
	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	enabled := make(map[string]bool)
	required := make(map[string]bool)
	for name, spec := range registry {
		if !spec.Enabled {
			continue
		}
		enabled[name] = true
		if spec.Kind == KindDynamic && spec.RequireVerification {
			required[name] = true
		}
	}

	inManifest := make(map[string]bool, len(manifest.Artifacts))
	for _, artifact := range manifest.Artifacts {
		inManifest[artifact.Language] = true
	}

	issues, err := VerifyArtifacts(baseDir, manifest)
	if err != nil {
		return nil, err
	}

	filtered := make([]Issue, 0)
	for _, issue := range issues {
		if enabled[issue.Grammar] {
			filtered = append(filtered, issue)
		}
	}

	for name := range required {
		if !inManifest[name] {
			filtered = append(filtered, Issue{
				Grammar: name,
				Reason:  "grammar missing from manifest",
			})
		}
	}

	sortIssues(filtered)
	return filtered, nil
}

func checkArtifactHash(baseDir, language, kind, relPath, expectedHash string) []Issue {
	fullPath := filepath.Join(baseDir, relPath)
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return []Issue{{
			Grammar:      language,
			ArtifactKind: kind,
			ArtifactPath: relPath,
			ExpectedHash: expectedHash,
			ActualHash:   "<missing>",
			Reason:       "artifact missing or unreadable",
		}}
	}

	actual := fmt.Sprintf("%x", sha256.Sum256(data))
	if actual == expectedHash {
		return nil
	}
	return []Issue{{
		Grammar:      language,
		ArtifactKind: kind,
		ArtifactPath: relPath,
		ExpectedHash: expectedHash,
		ActualHash:   actual,
		Reason:       "checksum mismatch",
	}}
}

func sortIssues(issues []Issue) {
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Grammar != issues[j].Grammar {
			return issues[i].Grammar < issues[j].Grammar
		}
		if issues[i].ArtifactKind != issues[j].ArtifactKind {
			return issues[i].ArtifactKind < issues[j].ArtifactKind
		}
		if issues[i].ArtifactPath != issues[j].ArtifactPath {
			return issues[i].ArtifactPath < issues[j].ArtifactPath
		}
		return issues[i].Reason < issues[j].Reason
	})
}
