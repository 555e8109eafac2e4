package reader

import "log"

// Debug enables verbose reader-state logging.
var Debug bool

func debugLog(format string, v ...interface{}) {
	if Debug {
		log.Printf(format, v...)
	}
}
