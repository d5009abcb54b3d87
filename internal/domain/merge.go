package domain

// MergeArtifact applies only the fields owned by artifact from a fetched
// application snapshot onto the cached one. Concurrent fetches for different
// artifacts therefore never overwrite each other's results, regardless of
// completion order.
func MergeArtifact(cached Application, fetched Application, artifact Artifact) Application {
	if cached.ID == "" {
		return fetched
	}
	switch artifact {
	case ArtifactClaims:
		cached.Claims = fetched.Claims
		cached.ClaimsExist = fetched.ClaimsExist
	case ArtifactSubjectDescription:
		cached.SubjectDescription = fetched.SubjectDescription
		cached.SubjectDescriptionExist = fetched.SubjectDescriptionExist
	case ArtifactPriorArtDescription:
		cached.PriorArtDescription = fetched.PriorArtDescription
		cached.PriorArtDescriptionExist = fetched.PriorArtDescriptionExist
	}
	if fetched.UpdatedAt.After(cached.UpdatedAt) {
		cached.UpdatedAt = fetched.UpdatedAt
	}
	return cached
}

// ReplaceDocket swaps the docket attached to rejectionID, keeping the
// finalized type already recorded when the incoming docket carries none.
func ReplaceDocket(app *Application, rejectionID string, docket Docket) bool {
	r := app.Rejection(rejectionID)
	if r == nil {
		return false
	}
	if docket.FinalizedType == "" && r.Docket != nil {
		docket.FinalizedType = r.Docket.FinalizedType
	}
	r.Docket = &docket
	return true
}
