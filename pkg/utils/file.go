package utils

import (
	"os"
	"os/user"
	"path/filepath"
	"strconv"
)

// WriteFileAsInvoker writes data to path, creating parent directories, and
// hands ownership back to the invoking user when run under sudo.
func WriteFileAsInvoker(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return err
	}
	return chownToInvoker(path)
}

// chownToInvoker is a no-op outside sudo or when SUDO_USER cannot be resolved.
func chownToInvoker(path string) error {
	uid, gid, ok := invokerIDs()
	if !ok {
		return nil
	}
	return os.Chown(path, uid, gid)
}

func invokerIDs() (uid, gid int, ok bool) {
	name := os.Getenv("SUDO_USER")
	if name == "" {
		return 0, 0, false
	}
	u, err := user.Lookup(name)
	if err != nil {
		return 0, 0, false
	}
	uid, err = strconv.Atoi(u.Uid)
	if err != nil {
		return 0, 0, false
	}
	gid, err = strconv.Atoi(u.Gid)
	if err != nil {
		return 0, 0, false
	}
	return uid, gid, true
}
