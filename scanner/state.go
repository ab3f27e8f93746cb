package scanner

// State is the lifecycle state of a Scanner.
type State int32

// Scanner states. Stopped is terminal.
const (
	Idle State = iota
	Streaming
	ProcessingFrame
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Streaming:
		return "streaming"
	case ProcessingFrame:
		return "processing_frame"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// TickResult is the outcome of one Tick.
type TickResult int

const (
	// TickNotStreaming means the scanner was not streaming and nothing ran.
	TickNotStreaming TickResult = iota
	// TickSkippedBusy means another tick was in flight and this one was dropped.
	TickSkippedBusy
	// TickNoDetection means no grid-like component was found.
	TickNoDetection
	// TickRejected means a component was found but its corners failed the sanity check.
	TickRejected
	// TickInsufficientContent means a grid was found with too few boxes to classify.
	TickInsufficientContent
	// TickUnsolved means the boxes were classified but the solver found no solution.
	TickUnsolved
	// TickSolved means the solver returned a solution and the scanner stopped.
	TickSolved
	// TickFailed means the tick hit an unexpected error and its frame was dropped.
	TickFailed
)

func (r TickResult) String() string {
	switch r {
	case TickNotStreaming:
		return "not_streaming"
	case TickSkippedBusy:
		return "skipped_busy"
	case TickNoDetection:
		return "no_detection"
	case TickRejected:
		return "rejected"
	case TickInsufficientContent:
		return "insufficient_content"
	case TickUnsolved:
		return "unsolved"
	case TickSolved:
		return "solved"
	case TickFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Pipeline stages with a latency figure.
const (
	StageCapture            = "capture"
	StageThreshold          = "threshold"
	StageConnectedComponent = "connected_component"
	StageCorner             = "corner"
	StageRectify            = "rectify"
	StageBoxExtract         = "box_extract"
	StageClassify           = "classify"
)

// Stages lists the pipeline stages in execution order.
var Stages = []string{
	StageCapture,
	StageThreshold,
	StageConnectedComponent,
	StageCorner,
	StageRectify,
	StageBoxExtract,
	StageClassify,
}
