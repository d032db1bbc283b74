package mocks

import (
	"testing"

	"github.com/petergtz/pegomock"
	"github.com/smartystreets/goconvey/convey"
)

// The mocks in this package are written by hand on testify/mock.
// statusSaver.go, acknowledger.go, messageSender.go, publisher.go

//AttachMockToConvey register pegomock verification to be passed to Convey
func AttachMockToConvey(t *testing.T) {
	pegomock.RegisterMockFailHandler(handleByConvey(t))
}

func handleByConvey(t *testing.T) pegomock.FailHandler {
	return func(message string, callerSkip ...int) {
		convey.So(message, convey.ShouldBeEmpty)
	}
}

//AttachMockToTest register pegomock verification to be passed to testing engine
func AttachMockToTest(t *testing.T) {
	pegomock.RegisterMockFailHandler(handleByTest(t))
}

func handleByTest(t *testing.T) pegomock.FailHandler {
	return func(message string, callerSkip ...int) {
		if message != "" {
			t.Error(message)
		}
	}
}
