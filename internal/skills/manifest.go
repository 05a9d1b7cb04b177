// Package skills scans a directory of skill documents, builds a routed
// manifest, and gates executor calls on at least one routed skill having
// been read. Front-matter parsing is grounded on the YAML-ish front-matter
// shape common across the example pack (gopkg.in/yaml.v3); directory
// scanning is grounded on internal/tools/glob.go's WalkDir pattern.
package skills

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cortexmemory/cortex/internal/types"
)

type frontMatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
}

// Scan walks root for skill documents (files with a "---"-delimited YAML
// front-matter block) and builds a manifest sorted by skill_ref. A
// document missing a name in its front-matter is skipped — it cannot be
// addressed by the skill-reader tool.
func Scan(root string) ([]types.SkillManifestEntry, error) {
	var entries []types.SkillManifestEntry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		fm, ok := parseFrontMatter(path)
		if !ok || fm.Name == "" {
			return nil
		}
		info, statErr := d.Info()
		lastUpdated := ""
		if statErr == nil {
			lastUpdated = info.ModTime().UTC().Format("2006-01-02T15:04:05Z")
		}
		entries = append(entries, types.SkillManifestEntry{
			SkillRef:    fm.Name,
			Title:       fm.Name,
			Description: fm.Description,
			Path:        path,
			Version:     fm.Version,
			LastUpdated: lastUpdated,
			Confidence:  defaultConfidence(fm.Version),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].SkillRef < entries[j].SkillRef })
	return entries, nil
}

// defaultConfidence gives versioned skills a small edge over unversioned
// drafts; this is a static prior, not derived from any outcome history.
func defaultConfidence(version string) float64 {
	if version == "" {
		return 0.5
	}
	return 0.7
}

func parseFrontMatter(path string) (frontMatter, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return frontMatter{}, false
	}
	text := string(data)
	if !strings.HasPrefix(strings.TrimLeft(text, "\n"), "---") {
		return frontMatter{}, false
	}
	text = strings.TrimLeft(text, "\n")
	rest := text[len("---"):]
	end := strings.Index(rest, "---")
	if end == -1 {
		return frontMatter{}, false
	}
	block := rest[:end]

	var fm frontMatter
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return frontMatter{}, false
	}
	return fm, true
}

// Body returns the skill document's content after its front-matter block,
// for the skill-reader tool to hand back to the model.
func Body(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text := string(data)
	trimmed := strings.TrimLeft(text, "\n")
	if !strings.HasPrefix(trimmed, "---") {
		return text, nil
	}
	rest := trimmed[len("---"):]
	end := strings.Index(rest, "---")
	if end == -1 {
		return text, nil
	}
	return strings.TrimLeft(rest[end+len("---"):], "\n"), nil
}
