package models

// Request holds the per-invocation settings passed to every operation.
type Request struct {
	ConfigName  string // profile name or path; empty means the default profile
	Verbose     bool
	Interactive bool
	DryRun      bool // print the backup command line instead of running it
}

// Environment holds values read once at startup.
type Environment struct {
	Home      string
	ConfigDir string
	Hostname  string
	Version   string
}
