package intent

import "strings"

// backchannels are bare acknowledgements a caller produces while the
// assistant is speaking. They signal attention, not a turn.
var backchannels = []string{
	"uh huh", "uh-huh", "uhuh",
	"mm hmm", "mm-hmm", "mmhmm", "mhm",
	"yeah", "yep", "yup",
	"okay", "ok", "k",
	"right", "i see", "got it",
	"sure", "alright", "all right",
	"hmm", "hm", "ah",
	"oh", "oh okay", "oh ok",
}

// IsBackchannel reports whether the utterance is a bare backchannel
// response. The playback driver uses this to ignore meaningless
// barge-ins while audio is playing. An utterance containing anything
// beyond the acknowledgement itself is not a backchannel, so explicit
// requests ("okay, transfer me") are never dismissed.
func IsBackchannel(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	lower = strings.TrimRight(lower, ".!?,")
	for _, bc := range backchannels {
		if lower == bc {
			return true
		}
	}
	return false
}
