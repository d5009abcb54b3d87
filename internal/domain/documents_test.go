package domain

import (
	"errors"
	"testing"
)

func TestAllDocumentsReady(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		setup func(s *ApplicationDocumentState)
		want  bool
	}{
		{
			name:  "fresh state",
			setup: func(s *ApplicationDocumentState) {},
			want:  false,
		},
		{
			name: "all fetched",
			setup: func(s *ApplicationDocumentState) {
				_ = s.Succeed(ArtifactClaims)
				_ = s.Succeed(ArtifactSubjectDescription)
				_ = s.Succeed(ArtifactPriorArtDescription)
			},
			want: true,
		},
		{
			name: "all exist on server",
			setup: func(s *ApplicationDocumentState) {
				s.ObserveApplication(Application{ClaimsExist: true, SubjectDescriptionExist: true, PriorArtDescriptionExist: true})
			},
			want: true,
		},
		{
			name: "mixed fetched and existing",
			setup: func(s *ApplicationDocumentState) {
				_ = s.Succeed(ArtifactClaims)
				s.SubjectDescriptionExist = true
				_ = s.Succeed(ArtifactPriorArtDescription)
			},
			want: true,
		},
		{
			name: "one failed",
			setup: func(s *ApplicationDocumentState) {
				_ = s.Succeed(ArtifactClaims)
				_ = s.Succeed(ArtifactSubjectDescription)
				_ = s.Fail(ArtifactPriorArtDescription, "timeout")
			},
			want: false,
		},
		{
			name: "one loading",
			setup: func(s *ApplicationDocumentState) {
				_ = s.Succeed(ArtifactClaims)
				_ = s.Begin(ArtifactSubjectDescription)
				_ = s.Succeed(ArtifactPriorArtDescription)
			},
			want: false,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := NewApplicationDocumentState("app-1")
			tc.setup(&s)
			if got := s.AllDocumentsReady(); got != tc.want {
				t.Fatalf("AllDocumentsReady() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSetFlagKeepsOnePhasePerArtifact(t *testing.T) {
	s := NewApplicationDocumentState("app-1")

	if err := s.SetFlag("isSubjectClaimsUploading", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SetFlag("subjectClaimsFailed", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	flags := s.Flags()
	if flags.IsSubjectClaimsUploading || flags.SubjectClaimsUploaded || !flags.SubjectClaimsFailed {
		t.Fatalf("expected only failed flag, got %+v", flags)
	}

	// clearing a flag that is not the current phase is a no-op
	if err := s.SetFlag("subjectClaimsUploaded", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Status(ArtifactClaims).Phase != PhaseFailed {
		t.Fatalf("expected failed phase, got %s", s.Status(ArtifactClaims).Phase)
	}

	if err := s.SetFlag("subjectClaimsFailed", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Status(ArtifactClaims).Phase != PhasePending {
		t.Fatalf("expected pending phase, got %s", s.Status(ArtifactClaims).Phase)
	}

	if err := s.SetFlag("showApplicationDocumentsLoading", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Flags().ShowApplicationDocumentsLoading {
		t.Fatalf("expected loading flag")
	}
}

func TestSetFlagRejectsUnknownField(t *testing.T) {
	s := NewApplicationDocumentState("app-1")
	err := s.SetFlag("isEverythingFine", true)
	if !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestPendingArtifacts(t *testing.T) {
	s := NewApplicationDocumentState("app-1")
	s.ClaimsExist = true
	_ = s.Begin(ArtifactSubjectDescription)

	got := s.PendingArtifacts()
	if len(got) != 1 || got[0] != ArtifactPriorArtDescription {
		t.Fatalf("unexpected pending artifacts: %v", got)
	}
}
