package krotov_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestKrotov(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Krotov Suite")
}
