package domain

import "time"

type User struct {
	ID    string `json:"_id" validate:"required"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email" validate:"required,email"`
}

// Session is the persisted identity context. Token is the backend bearer
// credential and is never rendered to API consumers.
type Session struct {
	ID                  string    `json:"id"`
	UserID              string    `json:"user_id"`
	Email               string    `json:"email"`
	Token               string    `json:"-"`
	ActiveApplicationID string    `json:"active_application_id,omitempty"`
	ActiveDocketID      string    `json:"active_docket_id,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

func (s Session) Scope(applicationID string) Scope {
	return Scope{UserID: s.UserID, ApplicationID: applicationID}
}

type Scope struct {
	UserID        string
	ApplicationID string
}

type PriorArtReference struct {
	Number      string `json:"number" validate:"required"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

type Application struct {
	ID                       string              `json:"_id" validate:"required"`
	ApplicationNumber        string              `json:"applicationNumber"`
	Title                    string              `json:"title,omitempty"`
	IsFirstRejection         bool                `json:"isFirstRejection"`
	Claims                   string              `json:"claims,omitempty"`
	ClaimsExist              bool                `json:"claimsExist"`
	SubjectDescription       string              `json:"subjectDescription,omitempty"`
	SubjectDescriptionExist  bool                `json:"subjectDescriptionExist"`
	PriorArtDescription      []PriorArtReference `json:"priorArtDescription,omitempty" validate:"dive"`
	PriorArtDescriptionExist bool                `json:"priorArtDescriptionExist"`
	Rejections               []Rejection         `json:"rejections" validate:"dive"`
	UpdatedAt                time.Time           `json:"updatedAt"`
}

func (a *Application) Docket(docketID string) (*Docket, *Rejection) {
	for i := range a.Rejections {
		r := &a.Rejections[i]
		if r.Docket != nil && r.Docket.ID == docketID {
			return r.Docket, r
		}
	}
	return nil, nil
}

func (a *Application) Rejection(rejectionID string) *Rejection {
	for i := range a.Rejections {
		if a.Rejections[i].ID == rejectionID {
			return &a.Rejections[i]
		}
	}
	return nil
}

func (a Application) RejectionIDs() []string {
	ids := make([]string, 0, len(a.Rejections))
	for _, r := range a.Rejections {
		ids = append(ids, r.ID)
	}
	return ids
}

type Rejection struct {
	ID            string              `json:"_id" validate:"required"`
	RejectionType RejectionType       `json:"rejectionType" validate:"required"`
	Claims        []int               `json:"claims" validate:"dive,gt=0"`
	PriorArt      []PriorArtReference `json:"priorArt,omitempty" validate:"dive"`
	Docket        *Docket             `json:"docket,omitempty"`
}

type Docket struct {
	ID              string              `json:"_id" validate:"required"`
	RejectionID     string              `json:"rejectionId"`
	RejectionType   RejectionType       `json:"rejectionType"`
	PriorArt        []PriorArtReference `json:"priorArt,omitempty" validate:"dive"`
	FinalizedType   Strategy            `json:"finalizedType,omitempty"`
	TechnicalData   *AmendmentResult    `json:"technicalData,omitempty"`
	NovelData       *AmendmentResult    `json:"novelData,omitempty"`
	DependentData   *AmendmentResult    `json:"dependentData,omitempty"`
	CompositeData   *AmendmentResult    `json:"compositeData,omitempty"`
	OneFeaturesData *AmendmentResult    `json:"oneFeaturesData,omitempty"`
}

func (d *Docket) Result(s Strategy) *AmendmentResult {
	switch s {
	case StrategyTechnicalComparison:
		return d.TechnicalData
	case StrategyNovelFeatures:
		return d.NovelData
	case StrategyDependentClaims:
		return d.DependentData
	case StrategyCompositeAmendment:
		return d.CompositeData
	case StrategyOneFeatures:
		return d.OneFeaturesData
	default:
		return nil
	}
}

type ComparisonRow struct {
	Element            string `json:"element" validate:"required"`
	SubjectDisclosure  string `json:"subjectDisclosure"`
	PriorArtDisclosure string `json:"priorArtDisclosure"`
	Distinguishing     bool   `json:"distinguishing"`
}

type AmendedClaim struct {
	ClaimNumber int    `json:"claimNumber" validate:"gte=1"`
	Text        string `json:"text" validate:"required"`
}

type AmendmentResult struct {
	ComparisonTable    []ComparisonRow `json:"comparisonTable" validate:"dive"`
	Elements           []string        `json:"elements" validate:"required,dive,required"`
	AdditionalElements []string        `json:"additionalElements,omitempty"`
	AmendedClaim       AmendedClaim    `json:"amendedClaim"`
}

type OtherRejectionResponse struct {
	RejectionID string `json:"rejectionId" validate:"required"`
	Response    string `json:"response"`
	IsFinalized bool   `json:"isFinalized"`
}

type MissingItem struct {
	RejectionID string `json:"rejectionId,omitempty"`
	Description string `json:"description" validate:"required"`
}

type DraftPreview struct {
	Ready        bool          `json:"ready"`
	MissingItems []MissingItem `json:"missingItems" validate:"dive"`
}

type DraftRecord struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"application_id"`
	UserID        string    `json:"user_id"`
	ObjectKey     string    `json:"object_key"`
	SizeBytes     int64     `json:"size_bytes"`
	CreatedAt     time.Time `json:"created_at"`
}

type UploadRecord struct {
	ID            string       `json:"id"`
	SessionID     string       `json:"session_id"`
	UserID        string       `json:"user_id"`
	ApplicationID string       `json:"application_id"`
	Artifact      Artifact     `json:"artifact"`
	Filename      string       `json:"filename"`
	ObjectKey     string       `json:"object_key"`
	Status        UploadStatus `json:"status"`
	FailureReason *string      `json:"failure_reason,omitempty"`
}
