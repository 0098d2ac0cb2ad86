package processor

// Stage identifies one step of a pipeline run.
type Stage int

const (
	StageFetchPreferences Stage = iota
	StageGenerateScript
	StageGenerateAudio
	StagePersistAudio
	StageRecordOutcome
	StageHandleError
	StageDone
)

var stageNames = [...]string{
	StageFetchPreferences: "fetch_preferences",
	StageGenerateScript:   "generate_script",
	StageGenerateAudio:    "generate_audio",
	StagePersistAudio:     "persist_audio",
	StageRecordOutcome:    "record_outcome",
	StageHandleError:      "handle_error",
	StageDone:             "done",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// Next returns the stage that follows s given the outcome of s.
// Only script, audio and persist stages branch on success.
func Next(s Stage, success bool) Stage {
	switch s {
	case StageFetchPreferences:
		return StageGenerateScript
	case StageGenerateScript:
		if success {
			return StageGenerateAudio
		}
		return StageHandleError
	case StageGenerateAudio:
		if success {
			return StagePersistAudio
		}
		return StageHandleError
	case StagePersistAudio:
		if success {
			return StageRecordOutcome
		}
		return StageHandleError
	default:
		return StageDone
	}
}
