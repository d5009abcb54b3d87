package temporal

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestTemporalWorkflows(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Temporal Workflow Suite")
}
