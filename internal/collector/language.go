package collector

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// extLanguages maps source extensions to a language for coarse detection.
var extLanguages = map[string]string{
	".go": "Go", ".py": "Python", ".rb": "Ruby", ".rs": "Rust",
	".java": "Java", ".kt": "Kotlin", ".scala": "Scala", ".cs": "C#",
	".c": "C", ".h": "C", ".cpp": "C++", ".cc": "C++", ".hpp": "C++",
	".php": "PHP", ".swift": "Swift", ".m": "Objective-C", ".dart": "Dart",
	".ex": "Elixir", ".exs": "Elixir", ".erl": "Erlang", ".hs": "Haskell",
	".lua": "Lua", ".r": "R", ".jl": "Julia", ".zig": "Zig",
	".js": "JavaScript", ".mjs": "JavaScript", ".cjs": "JavaScript", ".jsx": "JavaScript",
	".ts": "TypeScript", ".tsx": "TypeScript", ".vue": "Vue", ".svelte": "Svelte",
	".sh": "Shell", ".ps1": "PowerShell", ".html": "HTML", ".css": "CSS", ".scss": "CSS",
}

var skipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true, "dist": true, "build": true,
	"target": true, ".venv": true, "venv": true, "__pycache__": true, ".next": true,
}

// maxLanguageFiles bounds the census on very large trees.
const maxLanguageFiles = 20000

// DetectLanguage returns the language with the most source files under root,
// or "Unknown". Markup and styles only win when nothing else is present.
func DetectLanguage(root string) string {
	counts := map[string]int{}
	seen := 0
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		seen++
		if seen > maxLanguageFiles {
			return filepath.SkipAll
		}
		if lang, ok := extLanguages[strings.ToLower(filepath.Ext(d.Name()))]; ok {
			counts[lang]++
		}
		return nil
	})

	best, bestN := "Unknown", 0
	for lang, n := range counts {
		weighted := n
		if lang == "HTML" || lang == "CSS" || lang == "Shell" {
			weighted = n / 4
		}
		if weighted > bestN || (weighted == bestN && weighted > 0 && lang < best) {
			best, bestN = lang, weighted
		}
	}
	if bestN == 0 {
		for lang, n := range counts {
			if n > 0 && (best == "Unknown" || lang < best) {
				best = lang
			}
		}
	}
	return best
}
