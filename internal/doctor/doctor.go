// Package doctor provides environment preflight checks for supertonic.
package doctor

import (
	"fmt"
	"io"
	"os"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// VersionFunc returns a version string or an error if the component is unavailable.
type VersionFunc func() (string, error)

// Config holds injectable dependencies for each doctor check.
type Config struct {
	// ORTVersion probes the ONNX Runtime shared library and returns its
	// reported version, or an error if it cannot be loaded.
	ORTVersion VersionFunc
	// SkipORT skips the ONNX Runtime availability check.
	SkipORT bool
	// AssetFiles is the list of required asset-root file paths to verify on
	// disk: the model config, the codepoint indexer, and the four ONNX
	// graphs (§6.2).
	AssetFiles []string
	// VoiceStyleFiles is the list of voice style JSON paths to verify.
	VoiceStyleFiles []string
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	// ---- ONNX Runtime library ----------------------------------------------
	if cfg.SkipORT {
		fmt.Fprintf(w, "%s onnx runtime library: skipped\n", PassMark)
	} else {
		ver, err := cfg.ORTVersion()
		if err != nil {
			res.fail(fmt.Sprintf("onnx runtime library: %v", err))
			fmt.Fprintf(w, "%s onnx runtime library: not found (%v)\n", FailMark, err)
		} else {
			fmt.Fprintf(w, "%s onnx runtime library: %s\n", PassMark, ver)
		}
	}

	// ---- asset root files ---------------------------------------------------
	for _, path := range cfg.AssetFiles {
		if _, err := os.Stat(path); err != nil {
			res.fail(fmt.Sprintf("asset file %q: %v", path, err))
			fmt.Fprintf(w, "%s asset file %s: not found\n", FailMark, path)
		} else {
			fmt.Fprintf(w, "%s asset file: %s\n", PassMark, path)
		}
	}

	// ---- voice style files ---------------------------------------------------
	for _, path := range cfg.VoiceStyleFiles {
		if _, err := os.Stat(path); err != nil {
			res.fail(fmt.Sprintf("voice style %q: %v", path, err))
			fmt.Fprintf(w, "%s voice style: %s: not found\n", FailMark, path)
		} else {
			fmt.Fprintf(w, "%s voice style: %s\n", PassMark, path)
		}
	}

	return res
}
