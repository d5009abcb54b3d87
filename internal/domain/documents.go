package domain

import "fmt"

type ArtifactStatus struct {
	Phase  ArtifactPhase `json:"phase"`
	Reason string        `json:"reason,omitempty"`
}

// ApplicationDocumentState tracks the three prerequisite artifacts of one
// application. Each artifact holds exactly one phase, so in-flight, succeeded
// and failed can never be observed together.
type ApplicationDocumentState struct {
	ApplicationID            string         `json:"application_id"`
	Claims                   ArtifactStatus `json:"claims"`
	SubjectDescription       ArtifactStatus `json:"subject_description"`
	PriorArtDescription      ArtifactStatus `json:"prior_art_description"`
	ClaimsExist              bool           `json:"claims_exist"`
	SubjectDescriptionExist  bool           `json:"subject_description_exist"`
	PriorArtDescriptionExist bool           `json:"prior_art_description_exist"`
	ShowLoading              bool           `json:"show_application_documents_loading"`
}

// DocumentFlags is the boolean rendering consumed by the view layer.
type DocumentFlags struct {
	IsSubjectClaimsUploading        bool `json:"isSubjectClaimsUploading"`
	SubjectClaimsUploaded           bool `json:"subjectClaimsUploaded"`
	SubjectClaimsFailed             bool `json:"subjectClaimsFailed"`
	IsSubjectDescriptionFetching    bool `json:"isSubjectDescriptionFetching"`
	SubjectDescriptionFetched       bool `json:"subjectDescriptionFetched"`
	SubjectDescriptionFailed        bool `json:"subjectDescriptionFailed"`
	IsPriorArtDescriptionFetching   bool `json:"isPriorArtDescriptionFetching"`
	PriorArtDescriptionFetched      bool `json:"priorArtDescriptionFetched"`
	PriorArtDescriptionFailed       bool `json:"priorArtDescriptionFailed"`
	ShowApplicationDocumentsLoading bool `json:"showApplicationDocumentsLoading"`
}

type flagTarget struct {
	artifact Artifact
	phase    ArtifactPhase
}

var documentFlagTargets = map[string]flagTarget{
	"isSubjectClaimsUploading":      {ArtifactClaims, PhaseInFlight},
	"subjectClaimsUploaded":         {ArtifactClaims, PhaseSucceeded},
	"subjectClaimsFailed":           {ArtifactClaims, PhaseFailed},
	"isSubjectDescriptionFetching":  {ArtifactSubjectDescription, PhaseInFlight},
	"subjectDescriptionFetched":     {ArtifactSubjectDescription, PhaseSucceeded},
	"subjectDescriptionFailed":      {ArtifactSubjectDescription, PhaseFailed},
	"isPriorArtDescriptionFetching": {ArtifactPriorArtDescription, PhaseInFlight},
	"priorArtDescriptionFetched":    {ArtifactPriorArtDescription, PhaseSucceeded},
	"priorArtDescriptionFailed":     {ArtifactPriorArtDescription, PhaseFailed},
}

const showDocumentsLoadingFlag = "showApplicationDocumentsLoading"

func NewApplicationDocumentState(applicationID string) ApplicationDocumentState {
	pending := ArtifactStatus{Phase: PhasePending}
	return ApplicationDocumentState{
		ApplicationID:       applicationID,
		Claims:              pending,
		SubjectDescription:  pending,
		PriorArtDescription: pending,
	}
}

func (s *ApplicationDocumentState) status(a Artifact) *ArtifactStatus {
	switch a {
	case ArtifactClaims:
		return &s.Claims
	case ArtifactSubjectDescription:
		return &s.SubjectDescription
	case ArtifactPriorArtDescription:
		return &s.PriorArtDescription
	default:
		return nil
	}
}

func (s ApplicationDocumentState) Status(a Artifact) ArtifactStatus {
	st := s.status(a)
	if st == nil || st.Phase == "" {
		return ArtifactStatus{Phase: PhasePending}
	}
	return *st
}

func (s *ApplicationDocumentState) transition(a Artifact, phase ArtifactPhase, reason string) error {
	st := s.status(a)
	if st == nil {
		return fmt.Errorf("%w: artifact %q", ErrUnknownField, a)
	}
	*st = ArtifactStatus{Phase: phase, Reason: reason}
	return nil
}

func (s *ApplicationDocumentState) Begin(a Artifact) error {
	return s.transition(a, PhaseInFlight, "")
}

func (s *ApplicationDocumentState) Succeed(a Artifact) error {
	return s.transition(a, PhaseSucceeded, "")
}

func (s *ApplicationDocumentState) Fail(a Artifact, reason string) error {
	return s.transition(a, PhaseFailed, reason)
}

func (s *ApplicationDocumentState) Reset(a Artifact) error {
	return s.transition(a, PhasePending, "")
}

// ObserveApplication copies the server-side existence flags.
func (s *ApplicationDocumentState) ObserveApplication(app Application) {
	s.ClaimsExist = app.ClaimsExist
	s.SubjectDescriptionExist = app.SubjectDescriptionExist
	s.PriorArtDescriptionExist = app.PriorArtDescriptionExist
}

func (s ApplicationDocumentState) existsOnServer(a Artifact) bool {
	switch a {
	case ArtifactClaims:
		return s.ClaimsExist
	case ArtifactSubjectDescription:
		return s.SubjectDescriptionExist
	case ArtifactPriorArtDescription:
		return s.PriorArtDescriptionExist
	default:
		return false
	}
}

func (s ApplicationDocumentState) Ready(a Artifact) bool {
	return s.Status(a).Phase == PhaseSucceeded || s.existsOnServer(a)
}

func (s ApplicationDocumentState) AllDocumentsReady() bool {
	for _, a := range Artifacts {
		if !s.Ready(a) {
			return false
		}
	}
	return true
}

// SetFlag applies one of the legacy boolean field names. Setting a phase flag
// to true moves the artifact into that phase; setting it to false only
// returns the artifact to pending when it is currently in that phase.
func (s *ApplicationDocumentState) SetFlag(field string, value bool) error {
	if field == showDocumentsLoadingFlag {
		s.ShowLoading = value
		return nil
	}
	target, ok := documentFlagTargets[field]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if value {
		return s.transition(target.artifact, target.phase, "")
	}
	if s.Status(target.artifact).Phase == target.phase {
		return s.Reset(target.artifact)
	}
	return nil
}

func (s ApplicationDocumentState) Flags() DocumentFlags {
	claims := s.Status(ArtifactClaims).Phase
	subject := s.Status(ArtifactSubjectDescription).Phase
	priorArt := s.Status(ArtifactPriorArtDescription).Phase
	return DocumentFlags{
		IsSubjectClaimsUploading:        claims == PhaseInFlight,
		SubjectClaimsUploaded:           claims == PhaseSucceeded,
		SubjectClaimsFailed:             claims == PhaseFailed,
		IsSubjectDescriptionFetching:    subject == PhaseInFlight,
		SubjectDescriptionFetched:       subject == PhaseSucceeded,
		SubjectDescriptionFailed:        subject == PhaseFailed,
		IsPriorArtDescriptionFetching:   priorArt == PhaseInFlight,
		PriorArtDescriptionFetched:      priorArt == PhaseSucceeded,
		PriorArtDescriptionFailed:       priorArt == PhaseFailed,
		ShowApplicationDocumentsLoading: s.ShowLoading,
	}
}

// PendingArtifacts lists artifacts that are neither ready nor being fetched.
func (s ApplicationDocumentState) PendingArtifacts() []Artifact {
	out := make([]Artifact, 0, len(Artifacts))
	for _, a := range Artifacts {
		if s.Ready(a) || s.Status(a).Phase == PhaseInFlight {
			continue
		}
		out = append(out, a)
	}
	return out
}
