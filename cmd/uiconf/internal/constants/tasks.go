package constants

// Task action labels. Task records carry one of these to say what kind of
// asynchronous work was requested.
const (
	// TaskActionGenerate is generation from an image and/or prompt.
	TaskActionGenerate = "generate"

	// TaskActionTextGenerate is generation from a text prompt only.
	TaskActionTextGenerate = "textGenerate"
)

// TaskActions returns all task action labels.
func TaskActions() []string {
	return []string{TaskActionGenerate, TaskActionTextGenerate}
}

// IsTaskAction checks if action is a known task action label.
// Matching is exact: "Generate" is not a task action.
func IsTaskAction(action string) bool {
	switch action {
	case TaskActionGenerate, TaskActionTextGenerate:
		return true
	}
	return false
}

// Task lifecycle states.
const (
	TaskStatusSubmitted  = "submitted"
	TaskStatusInProgress = "in_progress"
	TaskStatusSuccess    = "success"
	TaskStatusFailure    = "failure"
)

// IsTaskStatus checks if status is a known task state.
func IsTaskStatus(status string) bool {
	switch status {
	case TaskStatusSubmitted, TaskStatusInProgress, TaskStatusSuccess, TaskStatusFailure:
		return true
	}
	return false
}
