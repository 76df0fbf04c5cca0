package common

// Version is overridden at build time with -ldflags "-X .../common.Version=...".
var Version = "dev"

const (
	// PackageName is used as the default service tag in logs.
	PackageName = "windsend"

	// ProgramName names files the program owns, such as the rolling log file.
	ProgramName = "WindSend"
)
