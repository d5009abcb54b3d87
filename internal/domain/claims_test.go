package domain

import "testing"

func TestFormatClaimRanges(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   []int
		want string
	}{
		{in: []int{1, 2, 3, 5, 7, 8, 9}, want: "1-3, 5, 7-9"},
		{in: []int{9, 8, 7, 5, 3, 2, 1}, want: "1-3, 5, 7-9"},
		{in: []int{4}, want: "4"},
		{in: []int{1, 1, 2, 2}, want: "1-2"},
		{in: []int{1, 3, 5}, want: "1, 3, 5"},
		{in: nil, want: ""},
	}

	for _, tc := range cases {
		if got := FormatClaimRanges(tc.in); got != tc.want {
			t.Fatalf("FormatClaimRanges(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMergeArtifactKeepsEarlierResults(t *testing.T) {
	cached := Application{ID: "app-1", Claims: "old claims"}

	subject := Application{ID: "app-1", SubjectDescription: "subject", SubjectDescriptionExist: true}
	claims := Application{ID: "app-1", Claims: "new claims", ClaimsExist: true}

	// subject settles first, claims settles last with a stale empty subject
	merged := MergeArtifact(cached, subject, ArtifactSubjectDescription)
	merged = MergeArtifact(merged, claims, ArtifactClaims)

	if merged.SubjectDescription != "subject" || !merged.SubjectDescriptionExist {
		t.Fatalf("subject result dropped: %+v", merged)
	}
	if merged.Claims != "new claims" || !merged.ClaimsExist {
		t.Fatalf("claims result missing: %+v", merged)
	}
}

func TestReplaceDocketKeepsFinalizedType(t *testing.T) {
	app := Application{ID: "app-1", Rejections: []Rejection{{
		ID:            "r1",
		RejectionType: Rejection102,
		Docket:        &Docket{ID: "dk-1", FinalizedType: StrategyNovelFeatures},
	}}}

	if !ReplaceDocket(&app, "r1", Docket{ID: "dk-1"}) {
		t.Fatalf("expected docket replaced")
	}
	if app.Rejections[0].Docket.FinalizedType != StrategyNovelFeatures {
		t.Fatalf("finalized type lost")
	}
	if ReplaceDocket(&app, "missing", Docket{ID: "dk-2"}) {
		t.Fatalf("expected false for unknown rejection")
	}
}
