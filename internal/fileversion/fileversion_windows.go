//go:build windows

package fileversion

import (
	"fmt"
	"os"
	"runtime"
	"syscall"
	"unsafe"
)

var (
	versionDLL                  = syscall.MustLoadDLL("version.dll")
	procGetFileVersionInfoSizeW = versionDLL.MustFindProc("GetFileVersionInfoSizeW")
	procGetFileVersionInfoW     = versionDLL.MustFindProc("GetFileVersionInfoW")
	procVerQueryValueW          = versionDLL.MustFindProc("VerQueryValueW")
)

// vsFixedFileInfo mirrors the VS_FIXEDFILEINFO structure of the Windows SDK.
type vsFixedFileInfo struct {
	Signature        uint32
	StrucVersion     uint32
	FileVersionMS    uint32
	FileVersionLS    uint32
	ProductVersionMS uint32
	ProductVersionLS uint32
	FileFlagsMask    uint32
	FileFlags        uint32
	FileOS           uint32
	FileType         uint32
	FileSubtype      uint32
	FileDateMS       uint32
	FileDateLS       uint32
}

// ProductVersion returns the dotted product version embedded in the version
// resource of the executable at path, e.g. "16.0.12345.20000".
func ProductVersion(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("stat executable: %w", err)
	}

	size, err := getFileVersionInfoSize(path)
	if err != nil {
		return "", err
	}

	info, err := getFileVersionInfo(path, size)
	if err != nil {
		return "", err
	}

	fixedInfoPtr, fixedInfoLen, err := verQueryValue(info, `\`)
	if err != nil {
		return "", err
	}

	if fixedInfoLen == 0 {
		return "", fmt.Errorf("no fixed version info in %s", path)
	}

	fixedInfo := (*vsFixedFileInfo)(fixedInfoPtr)

	major := fixedInfo.ProductVersionMS >> 16
	minor := fixedInfo.ProductVersionMS & 0xffff
	build := fixedInfo.ProductVersionLS >> 16
	revision := fixedInfo.ProductVersionLS & 0xffff

	// fixedInfoPtr points into info's backing array; keep it alive until
	// the fields above have been read.
	runtime.KeepAlive(info)

	return fmt.Sprintf("%d.%d.%d.%d", major, minor, build, revision), nil
}

func getFileVersionInfoSize(filename string) (uint32, error) {
	p, err := syscall.UTF16PtrFromString(filename)
	if err != nil {
		return 0, err
	}

	r0, _, e1 := syscall.Syscall(procGetFileVersionInfoSizeW.Addr(), 2,
		uintptr(unsafe.Pointer(p)), 0, 0)

	size := uint32(r0)
	if size == 0 {
		if e1 != 0 {
			return 0, error(e1)
		}

		return 0, fmt.Errorf("GetFileVersionInfoSizeW failed for %s", filename)
	}

	return size, nil
}

func getFileVersionInfo(filename string, size uint32) ([]byte, error) {
	info := make([]byte, size)

	p, err := syscall.UTF16PtrFromString(filename)
	if err != nil {
		return nil, err
	}

	r0, _, e1 := syscall.Syscall6(procGetFileVersionInfoW.Addr(), 4,
		uintptr(unsafe.Pointer(p)),
		0,
		uintptr(size),
		uintptr(unsafe.Pointer(&info[0])),
		0, 0)
	if r0 == 0 {
		if e1 != 0 {
			return nil, error(e1)
		}

		return nil, fmt.Errorf("GetFileVersionInfoW failed for %s", filename)
	}

	return info, nil
}

func verQueryValue(block []byte, subBlock string) (unsafe.Pointer, uint32, error) {
	pSubBlock, err := syscall.UTF16PtrFromString(subBlock)
	if err != nil {
		return nil, 0, err
	}

	var (
		buf  unsafe.Pointer
		size uint32
	)

	r0, _, e1 := syscall.Syscall6(procVerQueryValueW.Addr(), 4,
		uintptr(unsafe.Pointer(&block[0])),
		uintptr(unsafe.Pointer(pSubBlock)),
		uintptr(unsafe.Pointer(&buf)),
		uintptr(unsafe.Pointer(&size)),
		0, 0)
	if r0 == 0 {
		if e1 != 0 {
			return nil, 0, error(e1)
		}

		return nil, 0, fmt.Errorf("VerQueryValueW failed for subBlock %s", subBlock)
	}

	return buf, size, nil
}
