package state

// debug toggles, wired to CLI flags
var (
	DBG_log_beacon = false
	DBG_log_data   = false
	DBG_log_ack    = false
	DBG_debug      = false
)
