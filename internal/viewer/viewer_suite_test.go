package viewer_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestViewer(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Viewer Suite")
}

// hostClock stands in for the display refresh.
type hostClock struct{ now time.Time }

func (c *hostClock) Now() time.Time { return c.now }

func (c *hostClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
