// logging.go - Log backend setup

package main

import (
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

// configureLogging installs the simple backend. verbosity 0 logs notices
// and above, 1 adds info, 2 adds debug (and with it block traces). An
// empty file logs to stderr.
func configureLogging(verbosity int, file string) {
	if file == "" {
		commonlog.Configure(verbosity, nil)
		return
	}
	commonlog.Configure(verbosity, &file)
}
