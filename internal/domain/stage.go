package domain

// Stage is the pipeline position of an opportunity.
// closed_won and closed_lost are terminal.
type Stage string

const (
	StageLead          Stage = "lead"
	StageQualification Stage = "qualification"
	StageProposal      Stage = "proposal"
	StageNegotiation   Stage = "negotiation"
	StageClosedWon     Stage = "closed_won"
	StageClosedLost    Stage = "closed_lost"
)

// stageOrder is the fixed column order of the pipeline board
var stageOrder = []Stage{
	StageLead,
	StageQualification,
	StageProposal,
	StageNegotiation,
	StageClosedWon,
	StageClosedLost,
}

// stageLabels maps stages to display labels
var stageLabels = map[Stage]string{
	StageLead:          "Lead",
	StageQualification: "Qualification",
	StageProposal:      "Proposal",
	StageNegotiation:   "Negotiation",
	StageClosedWon:     "Closed Won",
	StageClosedLost:    "Closed Lost",
}

// AllStages returns the six pipeline stages in board order.
// The returned slice is a copy and may be modified by the caller.
func AllStages() []Stage {
	stages := make([]Stage, len(stageOrder))
	copy(stages, stageOrder)
	return stages
}

// IsTerminal reports whether the stage is closed_won or closed_lost
func (s Stage) IsTerminal() bool {
	return s == StageClosedWon || s == StageClosedLost
}

// IsValid reports whether s is one of the six known stages
func (s Stage) IsValid() bool {
	_, ok := stageLabels[s]
	return ok
}

// Label returns the human readable stage name
func (s Stage) Label() string {
	if label, ok := stageLabels[s]; ok {
		return label
	}
	return string(s)
}
