package sysfs

import (
	"errors"
	"io/fs"

	"golang.org/x/sys/unix"
)

// IsBusy reports whether err means the resource is claimed by someone else
// (EBUSY from an export write). Callers recover from this by unexporting
// and exporting again.
func IsBusy(err error) bool {
	return errors.Is(err, unix.EBUSY)
}

// IsNotExist reports whether err means the resource or attribute does not
// exist at all. This is fatal: there is nothing to retry.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, unix.ENOENT) || errors.Is(err, unix.ENODEV)
}
