package cli

import "os"

// No reload signal on Windows.
func notifyReload(chan<- os.Signal) {}
