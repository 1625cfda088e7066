package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"
)

var panicDir = ""

const panicFilename = "panic_dump"

// SetPanicDir sets the directory panic dumps are written to.  The working
// directory is used when it is empty.
func SetPanicDir(dir string) {
	panicDir = dir
}

// MyRecover must be deferred directly by the goroutine it guards.
func MyRecover() {
	if err := recover(); err != nil {
		var buf [4096]byte
		n := runtime.Stack(buf[:], false)
		log.Criticalf("Recovered from panic: %v\nStack Trace ==> %s", err, string(buf[:n]))
		// Dump panic file
		_ = DumpPanicInfo(fmt.Sprintf("%v", err) + "\n" + string(buf[:n]))
	}
}

func DumpPanicInfo(info string) error {
	currentTime := time.Now()
	fileSuffix := currentTime.Format("20060102150405") + "_" + strconv.FormatInt(currentTime.UnixNano(), 10)
	fileName := filepath.Join(panicDir, panicFilename+"_"+fileSuffix)
	log.Infof("Dumping panic info to %v...", fileName)
	err := os.WriteFile(fileName, []byte(info), 0600)
	if err != nil {
		log.Errorf("Unable to write panic file %v", fileName)
		return err
	}
	return nil
}
