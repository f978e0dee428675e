package infra

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

// GetWorkDir expands a leading ~ in base, joins path and makes sure the
// resulting directory exists.
func GetWorkDir(base string, path ...string) (string, error) {
	parts := append([]string{base}, path...)
	workDir, err := homedir.Expand(filepath.Join(parts...))
	if err != nil {
		return "", errors.WithMessage(err, "cant expand work dir")
	}
	if err = os.MkdirAll(workDir, os.ModePerm); err != nil {
		return "", errors.WithMessage(err, "cant create work dir")
	}
	return workDir, nil
}
