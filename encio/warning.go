package encio

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Warnings is where warnings are sent to.
// In many cases binser will continue to operate with e.g. incorrectly implemented io.Writers or
// degenerate schemas, however I don't want to silently put up with things that seem worrying.
var Warnings io.Writer = os.Stderr

var warnMutex sync.Mutex

// Warnf writes a warning to Warnings.
func Warnf(format string, a ...interface{}) {
	Fwarnf(Warnings, format, a...)
}

// Fwarnf writes a warning to w, or to Warnings if w is nil.
// Warnings are prefixed with "binser: " and end with a newline.
func Fwarnf(w io.Writer, format string, a ...interface{}) {
	if w == nil {
		w = Warnings
	}
	if w == nil {
		return
	}

	warnMutex.Lock()
	fmt.Fprintf(w, "binser: "+format+"\n", a...)
	warnMutex.Unlock()
}
