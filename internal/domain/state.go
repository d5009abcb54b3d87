package domain

type Artifact string

const (
	ArtifactClaims              Artifact = "claims"
	ArtifactSubjectDescription  Artifact = "subjectDescription"
	ArtifactPriorArtDescription Artifact = "priorArtDescription"
)

var Artifacts = []Artifact{ArtifactClaims, ArtifactSubjectDescription, ArtifactPriorArtDescription}

func (a Artifact) Valid() bool {
	switch a {
	case ArtifactClaims, ArtifactSubjectDescription, ArtifactPriorArtDescription:
		return true
	}
	return false
}

type ArtifactPhase string

const (
	PhasePending   ArtifactPhase = "PENDING"
	PhaseInFlight  ArtifactPhase = "IN_FLIGHT"
	PhaseSucceeded ArtifactPhase = "SUCCEEDED"
	PhaseFailed    ArtifactPhase = "FAILED"
)

type Strategy string

const (
	StrategyTechnicalComparison Strategy = "technicalComparison"
	StrategyNovelFeatures       Strategy = "novelFeatures"
	StrategyDependentClaims     Strategy = "dependentClaims"
	StrategyCompositeAmendment  Strategy = "compositeAmendment"
	StrategyOneFeatures         Strategy = "oneFeatures"
)

var Strategies = []Strategy{
	StrategyTechnicalComparison,
	StrategyNovelFeatures,
	StrategyDependentClaims,
	StrategyCompositeAmendment,
	StrategyOneFeatures,
}

func (s Strategy) Valid() bool {
	for _, known := range Strategies {
		if s == known {
			return true
		}
	}
	return false
}

// TabPath is the path segment the backend uses under /tabs/{type}/.
func (s Strategy) TabPath() string {
	switch s {
	case StrategyTechnicalComparison:
		return "technicalcomparison"
	case StrategyNovelFeatures:
		return "novelfeatures"
	case StrategyDependentClaims:
		return "dependentclaims"
	case StrategyCompositeAmendment:
		return "compositeamendments"
	case StrategyOneFeatures:
		return "onefeatures"
	default:
		return ""
	}
}

type RejectionType string

const (
	Rejection101 RejectionType = "101"
	Rejection102 RejectionType = "102"
	Rejection103 RejectionType = "103"
	Rejection112 RejectionType = "112"
)

// Analyzable reports whether the backend can build a comparison docket for the rejection.
func (t RejectionType) Analyzable() bool {
	return t == Rejection102 || t == Rejection103
}

type AuditState string

const (
	AuditArtifactCollected AuditState = "ARTIFACT_COLLECTED"
	AuditArtifactFailed    AuditState = "ARTIFACT_FAILED"
	AuditStrategyGenerated AuditState = "STRATEGY_GENERATED"
	AuditFinalized         AuditState = "FINALIZED"
	AuditDraftGenerated    AuditState = "DRAFT_GENERATED"
	AuditSessionInvalid    AuditState = "SESSION_INVALID"
)

type UploadStatus string

const (
	UploadReceived  UploadStatus = "RECEIVED"
	UploadForwarded UploadStatus = "FORWARDED"
	UploadFailed    UploadStatus = "FAILED"
)
