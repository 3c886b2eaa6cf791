package cli

var RunWithIO = run

var (
	ParseStartTime   = parseStartTime
	DefaultSessionID = defaultSessionID
)
