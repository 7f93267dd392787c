//go:build !windows

package ops

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/MrCreosote/contigfilter/internal/errors"
)

// openNoFollow opens path read-only, refusing a symlink in the final
// component. Directory components are covered by ValidateImportPath.
func openNoFollow(path string) (*os.File, error) {
	fd, err := syscall.Open(path, syscall.O_RDONLY|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, 0)
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidParameter("path", "cannot read from symlink")
		}
		if stderrors.Is(err, syscall.ENOENT) {
			return nil, errors.NewFileNotFound(path)
		}
		return nil, errors.NewInternal(err)
	}
	return os.NewFile(uintptr(fd), path), nil
}
