// Package preflight runs environment checks before a scan session starts:
// free disk space for the index storage, the process file descriptor limit,
// and write access to the data directory.
package preflight

import (
	"fmt"
	"os"
	"path/filepath"
)

// CheckStatus is the outcome of one preflight check.
type CheckStatus int

const (
	StatusPass CheckStatus = iota
	StatusWarn
	StatusFail
)

func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Required bool        `json:"required"`
}

// IsCritical reports whether a required check failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Checker runs preflight checks for a scan session.
type Checker struct{}

// New creates a Checker.
func New() *Checker {
	return &Checker{}
}

// RunAll runs every check against the project root and its data directory.
func (c *Checker) RunAll(root, dataDir string) []CheckResult {
	return []CheckResult{
		c.CheckDataDirWritable(dataDir),
		c.CheckDiskSpace(root),
		c.CheckFileDescriptors(),
	}
}

// HasCriticalFailures reports whether any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// CheckDataDirWritable verifies the data directory can be created and
// written to.
func (c *Checker) CheckDataDirWritable(dataDir string) CheckResult {
	result := CheckResult{Name: "data_dir_writable", Required: true}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create %s: %v", dataDir, err)
		return result
	}

	probe := filepath.Join(dataDir, ".write-probe")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot write to %s: %v", dataDir, err)
		return result
	}
	_ = os.Remove(probe)

	result.Status = StatusPass
	result.Message = dataDir
	return result
}
