package sessionmgr

import "strings"

// recoverableSubstrings is the bootstrap heuristic SPEC §4.1/§9 mandates:
// a substring match against this fixed set, not a structured adapter error
// code. Known limitation (spec Open Question 2, preserved rather than
// replaced with speculative structure): an adapter error message that
// happens to contain one of these words is treated as recoverable even if
// it isn't.
var recoverableSubstrings = []string{
	"connection_timeout",
	"network_error",
	"temporary_failure",
}

// isRecoverable classifies an error per the substring heuristic above.
func isRecoverable(err error) bool {
	if err == nil {
		return false
	}
	lower := strings.ToLower(err.Error())
	for _, s := range recoverableSubstrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
