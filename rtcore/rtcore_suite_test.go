package rtcore_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

//go:generate mockgen -write_package_comment=false -package=rtcore_test -destination=streaming_mock_test.go github.com/sarchlab/arches/rtcore Scheduler
func TestRTCore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "RTCore Suite")
}
