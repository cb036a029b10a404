//go:build windows

// Package console detects how the agent was launched on Windows and wires
// Ctrl+C handling that keeps working while the tray loop owns the main
// thread.
package console

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"unsafe"
)

var (
	kernel32                       = syscall.NewLazyDLL("kernel32.dll")
	procGetConsoleWindow           = kernel32.NewProc("GetConsoleWindow")
	procAllocConsole               = kernel32.NewProc("AllocConsole")
	procFreeConsole                = kernel32.NewProc("FreeConsole")
	procGetStdHandle               = kernel32.NewProc("GetStdHandle")
	procCreateToolhelp32Snapshot   = kernel32.NewProc("CreateToolhelp32Snapshot")
	procProcess32First             = kernel32.NewProc("Process32First")
	procProcess32Next              = kernel32.NewProc("Process32Next")
	procOpenProcess                = kernel32.NewProc("OpenProcess")
	procQueryFullProcessImageNameW = kernel32.NewProc("QueryFullProcessImageNameW")
	procSetConsoleCtrlHandler      = kernel32.NewProc("SetConsoleCtrlHandler")
)

const (
	th32csSnapProcess       = 0x00000002
	processQueryLimitedInfo = 0x1000
	maxPath                 = 260
	ctrlCEvent              = 0
	ctrlBreakEvent          = 1
	stdInputHandle          = ^uint32(0) - 10 + 1
	stdOutputHandle         = ^uint32(0) - 11 + 1
	stdErrorHandle          = ^uint32(0) - 12 + 1
)

type processEntry32 struct {
	dwSize              uint32
	cntUsage            uint32
	th32ProcessID       uint32
	th32DefaultHeapID   uintptr
	th32ModuleID        uint32
	cntThreads          uint32
	th32ParentProcessID uint32
	pcPriClassBase      int32
	dwFlags             uint32
	szExeFile           [maxPath]uint16
}

// IsInteractive reports whether the agent was started from a terminal.
// A double-clicked launch (parent is explorer.exe) runs tray-only with no
// console window; a terminal launch keeps its console, and a GUI-mode
// build started from a terminal gets a fresh one with the std streams
// redirected into it.
func IsInteractive() bool {
	if hasConsoleWindow() {
		if launchedFromExplorer() {
			// Console-mode build was double-clicked: hide the
			// auto-created window.
			procFreeConsole.Call()
			return false
		}
		return true
	}
	if launchedFromExplorer() {
		return false
	}
	procAllocConsole.Call()
	redirectStdStreams()
	return true
}

func hasConsoleWindow() bool {
	hwnd, _, _ := procGetConsoleWindow.Call()
	return hwnd != 0
}

// redirectStdStreams rebinds os.Stdout/Stderr/Stdin after AllocConsole;
// Go captures the std handles at startup, before the console existed.
func redirectStdStreams() {
	nStdout, _, _ := procGetStdHandle.Call(uintptr(stdOutputHandle))
	nStderr, _, _ := procGetStdHandle.Call(uintptr(stdErrorHandle))
	nStdin, _, _ := procGetStdHandle.Call(uintptr(stdInputHandle))
	if nStdout == 0 || nStderr == 0 {
		return
	}
	os.Stdout = os.NewFile(nStdout, "/dev/stdout")
	os.Stderr = os.NewFile(nStderr, "/dev/stderr")
	if nStdin != 0 {
		os.Stdin = os.NewFile(nStdin, "/dev/stdin")
	}
	log.SetOutput(os.Stderr)
}

func launchedFromExplorer() bool {
	parent := parentProcessID(os.Getpid())
	if parent == 0 {
		return false
	}
	name := processImageName(parent)
	if name == "" {
		return false
	}
	return strings.EqualFold(filepath.Base(name), "explorer.exe")
}

func parentProcessID(pid int) int {
	handle, _, _ := procCreateToolhelp32Snapshot.Call(uintptr(th32csSnapProcess), 0)
	if handle == uintptr(syscall.InvalidHandle) {
		return 0
	}
	defer syscall.CloseHandle(syscall.Handle(handle))

	var entry processEntry32
	entry.dwSize = uint32(unsafe.Sizeof(entry))
	ret, _, _ := procProcess32First.Call(handle, uintptr(unsafe.Pointer(&entry)))
	if ret == 0 {
		return 0
	}
	for {
		if int(entry.th32ProcessID) == pid {
			return int(entry.th32ParentProcessID)
		}
		ret, _, _ = procProcess32Next.Call(handle, uintptr(unsafe.Pointer(&entry)))
		if ret == 0 {
			return 0
		}
	}
}

func processImageName(pid int) string {
	hProcess, _, _ := procOpenProcess.Call(uintptr(processQueryLimitedInfo), 0, uintptr(pid))
	if hProcess == 0 {
		return ""
	}
	defer syscall.CloseHandle(syscall.Handle(hProcess))

	var buf [maxPath]uint16
	size := uint32(maxPath)
	ret, _, _ := procQueryFullProcessImageNameW.Call(hProcess, 0, uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&size)))
	if ret == 0 {
		return ""
	}
	return syscall.UTF16ToString(buf[:size])
}

// breakState backs the native control handler; package-global so the
// callback registered with Windows stays reachable.
var breakState struct {
	closed int32
	done   chan struct{}
	cb     uintptr
}

// InstallBreakHandler registers a native console control handler that
// closes done on Ctrl+C or Ctrl+Break. Go's os.Interrupt delivery is not
// reliable once the tray has locked the main OS thread. The returned
// function re-registers the handler; call it after any library init that
// replaces console handlers.
func InstallBreakHandler(done chan struct{}) func() {
	breakState.done = done
	breakState.cb = syscall.NewCallback(func(ctrlType uint32) uintptr {
		if ctrlType == ctrlCEvent || ctrlType == ctrlBreakEvent {
			if atomic.CompareAndSwapInt32(&breakState.closed, 0, 1) {
				close(breakState.done)
			}
			return 1
		}
		return 0
	})
	register := func() {
		if ret, _, _ := procSetConsoleCtrlHandler.Call(breakState.cb, 1); ret == 0 {
			log.Printf("console: SetConsoleCtrlHandler failed")
		}
	}
	register()
	return register
}
