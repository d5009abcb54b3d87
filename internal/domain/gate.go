package domain

type Stage string

const (
	StageDocumentCollection Stage = "documentCollection"
	StageRejectionAnalysis  Stage = "rejectionAnalysis"
	StageResponseGeneration Stage = "responseGeneration"
)

type Gate struct {
	ApplicationID        string `json:"application_id"`
	DocumentCollection   bool   `json:"documentCollection"`
	DocumentsReady       bool   `json:"documentsReady"`
	RejectionsAnalyzable bool   `json:"rejectionsAnalyzable"`
	AllFinalized         bool   `json:"allFinalized"`
	ResponseGeneratable  bool   `json:"responseGeneratable"`
}

// ComputeGate derives the ordered stage unlocks. A stage is only unlocked
// when the stage before it is.
func ComputeGate(docs ApplicationDocumentState, status FinalizationStatus) Gate {
	g := Gate{
		ApplicationID:      docs.ApplicationID,
		DocumentCollection: true,
		DocumentsReady:     docs.AllDocumentsReady(),
		AllFinalized:       status.AllFinalized,
	}
	g.RejectionsAnalyzable = g.DocumentCollection && g.DocumentsReady
	g.ResponseGeneratable = g.RejectionsAnalyzable && g.AllFinalized
	return g
}

func (g Gate) Unlocked(stage Stage) bool {
	switch stage {
	case StageDocumentCollection:
		return g.DocumentCollection
	case StageRejectionAnalysis:
		return g.RejectionsAnalyzable
	case StageResponseGeneration:
		return g.ResponseGeneratable
	default:
		return false
	}
}

// HighestStage is the furthest unlocked stage.
func (g Gate) HighestStage() Stage {
	switch {
	case g.ResponseGeneratable:
		return StageResponseGeneration
	case g.RejectionsAnalyzable:
		return StageRejectionAnalysis
	default:
		return StageDocumentCollection
	}
}
